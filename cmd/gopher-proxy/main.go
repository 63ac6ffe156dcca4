package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	gopher "github.com/knowfox/gopher"
	"github.com/knowfox/gopher/internal/config"
	"github.com/knowfox/gopher/internal/logging"
	"github.com/knowfox/gopher/internal/proxy"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		configPath string
		addr       string
		origins    string
		plus       bool
		tlsPolicy  string
	)
	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.StringVar(&addr, "addr", "", "listen address, overrides [proxy] addr")
	flag.StringVar(&origins, "cors", "", "comma separated allowed origins, overrides [proxy] cors_origins")
	flag.BoolVar(&plus, "plus", false, "speak Gopher+ to upstream servers")
	flag.StringVar(&tlsPolicy, "tls", "", "upstream TLS policy: none, prefer or only")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			logging.ConfigureRuntime("gopher-proxy")
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}
	logger := logging.ConfigureFile("gopher-proxy", cfg.Log.Level, cfg.Log.JSON)

	if addr != "" {
		cfg.Proxy.Addr = addr
	}
	if origins != "" {
		cfg.Proxy.CORSOrigins = strings.Split(origins, ",")
	}
	if plus {
		cfg.Client.Protocol = gopher.GopherPlus
	}
	if tlsPolicy != "" {
		policy, err := gopher.ParseTLSPolicy(tlsPolicy)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -tls")
		}
		cfg.Client.TLS = policy
	}
	cfg.Client.Logger = &logger

	client, err := gopher.NewClient(cfg.Client)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gopher client")
	}
	p, err := proxy.New(proxy.Options{
		Client:          client,
		CORSOrigins:     cfg.Proxy.CORSOrigins,
		RetryMaxElapsed: cfg.Proxy.RetryMaxElapsed,
		Metrics:         cfg.Proxy.Metrics,
		Logger:          logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create proxy")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := p.ListenAndServe(ctx, cfg.Proxy.Addr); err != nil {
		log.Fatal().Err(err).Msg("proxy stopped")
	}
}

// Package proxy serves Gopher items over HTTP so that browsers can reach
// Gopher servers through a plain fetch call.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	gopher "github.com/knowfox/gopher"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	// ContentType is both the required Accept value and the response type.
	ContentType = "application/gopher"
	Path        = "/gopher-proxy"
)

type Options struct {
	Client      *gopher.Client
	CORSOrigins []string
	// RetryMaxElapsed bounds retries of failed upstream exchanges. Zero sends
	// each request once.
	RetryMaxElapsed time.Duration
	Metrics         bool
	Logger          zerolog.Logger
}

type Proxy struct {
	router          *gin.Engine
	client          *gopher.Client
	retryMaxElapsed time.Duration
	metrics         bool
	log             zerolog.Logger
}

func New(opts Options) (*Proxy, error) {
	if opts.Client == nil {
		return nil, errors.New("proxy: nil gopher client")
	}
	p := &Proxy{
		client:          opts.Client,
		retryMaxElapsed: opts.RetryMaxElapsed,
		metrics:         opts.Metrics,
		log:             opts.Logger,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(opts.Logger))
	if opts.Metrics {
		RegisterMetrics()
		r.Use(RequestMetrics())
	}
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.Any(Path, p.serveProxy)
	if opts.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	p.router = r
	return p, nil
}

func (p *Proxy) record(resp *gopher.Response, outcome string) {
	if p.metrics {
		RecordUpstream(resp, outcome)
	}
}

func (p *Proxy) Handler() http.Handler {
	return p.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (p *Proxy) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		p.log.Info().Str("addr", addr).Msg("gopher proxy listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down proxy: %w", err)
		}
		return nil
	}
}

func (p *Proxy) serveProxy(c *gin.Context) {
	if !acceptsGopher(c.GetHeader("Accept")) {
		c.String(http.StatusBadRequest, "400 Bad Request: unsupported Accept header value: '%s' - all requests should only Accept: %s",
			c.GetHeader("Accept"), ContentType)
		return
	}
	if c.Request.Method != http.MethodGet {
		c.String(http.StatusBadRequest, "400 Bad Request: unsupported method '%s'", c.Request.Method)
		return
	}
	rawurl := c.Query("url")
	if rawurl == "" {
		c.String(http.StatusBadRequest, "400 Bad Request: invalid request. Should be '%s?url=<URI-encoded gopher URI>'.", Path)
		return
	}
	req, err := gopher.ParseURL(rawurl)
	if err != nil {
		c.String(http.StatusBadRequest, "400 Bad Request: unable to parse gopher URI '%s'.", rawurl)
		return
	}

	resp, err := p.fetch(c.Request.Context(), req)
	if err != nil {
		p.record(nil, outcomeError)
		p.log.Warn().Err(err).Str("url", rawurl).Msg("upstream gopher request failed")
		c.String(http.StatusBadGateway, "502 Bad Gateway: %v", err)
		return
	}
	if resp.Failed() {
		p.record(resp, outcomeFailure)
		c.Header("Via", via(p.client.Protocol(), req))
		c.Data(http.StatusBadGateway, ContentType, resp.Body)
		return
	}
	p.record(resp, outcomeOK)
	if resp.TLSFallback != nil {
		p.log.Warn().Err(resp.TLSFallback).Str("url", rawurl).Msg("upstream served without tls")
	}

	c.Header("Via", via(p.client.Protocol(), req))
	c.Data(http.StatusOK, ContentType, resp.Body)
}

// fetch downloads req, retrying transport failures with exponential backoff.
func (p *Proxy) fetch(ctx context.Context, req *gopher.Request) (*gopher.Response, error) {
	req = req.WithContext(ctx)
	if p.retryMaxElapsed <= 0 {
		return p.client.DownloadItem(req)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = p.retryMaxElapsed

	var resp *gopher.Response
	err := backoff.RetryNotify(func() error {
		var err error
		resp, err = p.client.DownloadItem(req)
		if err != nil && (ctx.Err() != nil || !retryable(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		p.log.Warn().Err(err).Str("addr", req.Addr()).Dur("wait", wait).Msg("retrying upstream gopher request")
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// retryable reports whether err came from the network rather than from the
// request itself.
func retryable(err error) bool {
	var connErr *gopher.ConnectionError
	return errors.As(err, &connErr)
}

func via(protocol gopher.Protocol, req *gopher.Request) string {
	return fmt.Sprintf("Gopher/%s %s", protocol, req.Host)
}

func acceptsGopher(header string) bool {
	for _, part := range strings.Split(header, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == ContentType {
			return true
		}
	}
	return false
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Range"},
		MaxAge:       12 * time.Hour,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowOrigins = nil
			return cfg
		}
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

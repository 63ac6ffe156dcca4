package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	gopher "github.com/knowfox/gopher"
)

// Config is the file configuration shared by the gopher binaries.
type Config struct {
	Client gopher.Config
	Proxy  ProxyConfig
	Log    LogConfig
}

type ProxyConfig struct {
	Addr        string
	CORSOrigins []string
	// RetryMaxElapsed bounds upstream retries; zero disables them.
	RetryMaxElapsed time.Duration
	Metrics         bool
}

type LogConfig struct {
	Level string
	JSON  bool
}

type fileConfig struct {
	Client struct {
		Protocol           string `toml:"protocol"`
		TLS                string `toml:"tls"`
		Charset            string `toml:"charset"`
		InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
		DialTimeout        string `toml:"dial_timeout"`
		HandshakeTimeout   string `toml:"handshake_timeout"`
	} `toml:"client"`
	Proxy struct {
		Addr            string   `toml:"addr"`
		CORSOrigins     []string `toml:"cors_origins"`
		RetryMaxElapsed string   `toml:"retry_max_elapsed"`
		Metrics         bool     `toml:"metrics"`
	} `toml:"proxy"`
	Log struct {
		Level string `toml:"level"`
		JSON  bool   `toml:"json"`
	} `toml:"log"`
}

func Default() Config {
	return Config{
		Client: gopher.DefaultConfig(),
		Proxy: ProxyConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"*"},
			RetryMaxElapsed: 5 * time.Second,
			Metrics:         true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a TOML file and applies the keys it defines onto Default().
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return apply(raw, meta)
}

// Decode is Load for TOML text.
func Decode(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return apply(raw, meta)
}

func apply(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()
	var err error

	if meta.IsDefined("client", "protocol") {
		if cfg.Client.Protocol, err = gopher.ParseProtocol(raw.Client.Protocol); err != nil {
			return Config{}, fmt.Errorf("parse client.protocol: %w", err)
		}
	}
	if meta.IsDefined("client", "tls") {
		if cfg.Client.TLS, err = gopher.ParseTLSPolicy(raw.Client.TLS); err != nil {
			return Config{}, fmt.Errorf("parse client.tls: %w", err)
		}
	}
	if meta.IsDefined("client", "charset") {
		cfg.Client.Charset = strings.TrimSpace(raw.Client.Charset)
	}
	if meta.IsDefined("client", "insecure_skip_verify") {
		cfg.Client.InsecureSkipVerify = raw.Client.InsecureSkipVerify
	}
	if meta.IsDefined("client", "dial_timeout") {
		if cfg.Client.DialTimeout, err = parseDuration(raw.Client.DialTimeout); err != nil {
			return Config{}, fmt.Errorf("parse client.dial_timeout: %w", err)
		}
	}
	if meta.IsDefined("client", "handshake_timeout") {
		if cfg.Client.HandshakeTimeout, err = parseDuration(raw.Client.HandshakeTimeout); err != nil {
			return Config{}, fmt.Errorf("parse client.handshake_timeout: %w", err)
		}
	}

	if meta.IsDefined("proxy", "addr") {
		cfg.Proxy.Addr = strings.TrimSpace(raw.Proxy.Addr)
	}
	if meta.IsDefined("proxy", "cors_origins") {
		cfg.Proxy.CORSOrigins = normalize(raw.Proxy.CORSOrigins)
	}
	if meta.IsDefined("proxy", "retry_max_elapsed") {
		if cfg.Proxy.RetryMaxElapsed, err = parseDuration(raw.Proxy.RetryMaxElapsed); err != nil {
			return Config{}, fmt.Errorf("parse proxy.retry_max_elapsed: %w", err)
		}
	}
	if meta.IsDefined("proxy", "metrics") {
		cfg.Proxy.Metrics = raw.Proxy.Metrics
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}
	return cfg, nil
}

func parseDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

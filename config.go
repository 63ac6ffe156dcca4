package gopher

import (
	"time"

	"github.com/rs/zerolog"
)

// Config is the read-only configuration of a Client.
type Config struct {
	Protocol Protocol
	// TLS is the policy for requests that do not set their own.
	TLS TLSPolicy

	// InsecureSkipVerify controls whether a client verifies the server's
	// certificate chain and host name. If InsecureSkipVerify is true, crypto/tls
	// accepts any certificate presented by the server and any host name in that
	// certificate. Most Gopher servers that offer TLS use self-signed
	// certificates, so opportunistic TLS is usually paired with this.
	InsecureSkipVerify bool

	// DialTimeout bounds establishing the TCP connection.
	DialTimeout time.Duration
	// HandshakeTimeout bounds the TLS attempt, dial included. Plaintext
	// servers often wait silently for a selector instead of rejecting a
	// ClientHello, so this decides how quickly PreferTLS falls back.
	HandshakeTimeout time.Duration

	// Charset of menu and attribute text, e.g. "iso-8859-1". Empty means UTF-8.
	Charset string

	// Logger receives per-exchange debug events and TLS fallback warnings.
	// Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultConfig returns the configuration of a plain RFC1436 client.
func DefaultConfig() Config {
	return Config{
		Protocol:         RFC1436,
		TLS:              NoTLS,
		DialTimeout:      10 * time.Second,
		HandshakeTimeout: 5 * time.Second,
	}
}

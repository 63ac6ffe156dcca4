package gopher

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"
)

// readChunkSize is the amount of data read at once.
const readChunkSize = 2048

// exchange opens one connection for req, writes query, reads until the server
// closes the stream and frames the result. The connection is always closed.
func (c *Client) exchange(ctx context.Context, req *Request, query string) (*Response, error) {
	policy := c.policy(req)
	timing := TimingInfo{Start: time.Now()}

	conn, state, fallback, err := c.connect(ctx, req, policy)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	usedTLS := state != nil

	// Unblock pending I/O when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	timing.WriteStart = time.Now()
	if _, err := io.WriteString(conn, query); err != nil {
		return nil, &ConnectionError{Op: "write", Addr: req.Addr(), TLS: usedTLS, Cause: contextCause(ctx, err)}
	}

	raw, err := readAll(conn, &timing)
	if err != nil {
		return nil, &ConnectionError{Op: "read", Addr: req.Addr(), TLS: usedTLS, Cause: contextCause(ctx, err)}
	}

	resp := newResponse(raw, c.handler.Protocol(), timing)
	resp.TLS = state
	resp.TLSFallback = fallback
	resp.Request = req

	c.log.Debug().
		Str("addr", req.Addr()).
		Str("selector", req.Selector).
		Str("protocol", resp.Protocol.String()).
		Bool("tls", usedTLS).
		Int("bytes", len(raw)).
		Dur("connection_wait", timing.ConnectionWait()).
		Dur("first_byte_wait", timing.FirstByteWait()).
		Dur("total", timing.Total()).
		Msg("gopher exchange")
	return resp, nil
}

func (c *Client) policy(req *Request) TLSPolicy {
	policy := req.TLS
	if policy == TLSDefault {
		policy = c.config.TLS
	}
	if policy == TLSDefault {
		policy = NoTLS
	}
	return policy
}

// connect resolves the TLS policy into a connection. With PreferTLS the TLS
// error is returned as fallback when plaintext had to be used instead.
func (c *Client) connect(ctx context.Context, req *Request, policy TLSPolicy) (conn net.Conn, state *tls.ConnectionState, fallback error, err error) {
	addr := req.Addr()
	switch policy {
	case OnlyTLS:
		conn, state, err = c.dialTLS(ctx, req)
		if err != nil {
			return nil, nil, nil, &ConnectionError{Op: "dial", Addr: addr, TLS: true, Cause: err}
		}
		return conn, state, nil, nil
	case PreferTLS:
		conn, state, err = c.dialTLS(ctx, req)
		if err == nil {
			return conn, state, nil, nil
		}
		if ctx.Err() != nil {
			return nil, nil, nil, &ConnectionError{Op: "dial", Addr: addr, TLS: true, Cause: ctx.Err()}
		}
		c.log.Warn().Err(err).Str("addr", addr).Msg("tls unavailable, falling back to plaintext")
		fallback = err
	}
	conn, err = c.dialer().DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fallback, &ConnectionError{Op: "dial", Addr: addr, Cause: err}
	}
	return conn, nil, fallback, nil
}

func (c *Client) dialer() *net.Dialer {
	return &net.Dialer{Timeout: c.config.DialTimeout}
}

func (c *Client) dialTLS(ctx context.Context, req *Request) (net.Conn, *tls.ConnectionState, error) {
	if c.config.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.HandshakeTimeout)
		defer cancel()
	}
	d := &tls.Dialer{
		NetDialer: c.dialer(),
		Config: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         req.Host,
			InsecureSkipVerify: c.config.InsecureSkipVerify,
		},
	}
	conn, err := d.DialContext(ctx, "tcp", req.Addr())
	if err != nil {
		return nil, nil, err
	}
	state := conn.(*tls.Conn).ConnectionState()
	return conn, &state, nil
}

// readAll accumulates the stream until EOF or an empty read, recording when
// the first bytes arrived and when reading finished.
func readAll(r io.Reader, timing *TimingInfo) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if buf.Len() == 0 {
				timing.ReadStart = time.Now()
			}
			buf.Write(chunk[:n])
		}
		if err == io.EOF || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	timing.ReadComplete = time.Now()
	if timing.ReadStart.IsZero() {
		timing.ReadStart = timing.ReadComplete
	}
	return buf.Bytes(), nil
}

func contextCause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

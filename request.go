package gopher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Lists Gopher related URI schemas.
const (
	SchemaGopher  = "gopher"
	SchemaGophers = "gophers"
)

// uriPattern matches [scheme://]host[:port][selector].
var uriPattern = regexp.MustCompile(`^(?:(gopher|gophers)://)?((?:[\w-]*\.)+\w+|localhost)(?::(\d+))?([/\w\- !&?.=#~%+,:;@]*)$`)

// Request contains the data of a Gopher request.
//
// On the client side a Request is built by the caller and only read by the
// Client. On the server side it is built from the received request line.
type Request struct {
	Host string
	// Port 0 means the default port, 70.
	Port int
	// Selector conventionally starts with '/'. It may be empty for the root menu.
	Selector string
	// Query is sent to search servers (type 7 items).
	Query string
	// TLS overrides the client's policy when not TLSDefault.
	TLS TLSPolicy

	// Plus is the Gopher+ suffix a server received: "+", "!" or "$".
	// Clients leave it empty; the protocol handler adds what is needed.
	Plus string

	ctx  context.Context
	conn net.Conn
}

// NewRequest returns a request for selector on host:port.
func NewRequest(host string, port int, selector string) *Request {
	return &Request{Host: host, Port: port, Selector: selector}
}

// NewRequestWithContext returns a new Request for a gopher URL.
//
// For an outgoing client request, the context controls the entire
// lifetime of a request and its response: obtaining a connection,
// sending the selector, and reading the response.
func NewRequestWithContext(ctx context.Context, rawurl string) (*Request, error) {
	if ctx == nil {
		return nil, errors.New("gopher: nil Context")
	}
	req, err := ParseURL(rawurl)
	if err != nil {
		return nil, err
	}
	req.ctx = ctx
	return req, nil
}

// ParseURL parses "[gopher://|gophers://]host[:port][selector]". A gophers URL
// requires TLS. A tab in the unescaped selector separates a search query.
func ParseURL(rawurl string) (*Request, error) {
	m := uriPattern.FindStringSubmatch(strings.TrimSpace(rawurl))
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawurl)
	}
	req := &Request{Host: m[2]}
	if m[1] == SchemaGophers {
		req.TLS = OnlyTLS
	}
	if m[3] != "" {
		port, err := strconv.Atoi(m[3])
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: port %q", ErrInvalidURL, m[3])
		}
		req.Port = port
	}
	selector, err := url.PathUnescape(m[4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if sel, query, found := strings.Cut(selector, Tab); found {
		selector, req.Query = sel, query
	}
	req.Selector = selector
	return req, nil
}

// URL renders the request as a gopher URL.
func (r *Request) URL() string {
	scheme := SchemaGopher
	if r.TLS == OnlyTLS {
		scheme = SchemaGophers
	}
	u := fmt.Sprintf("%s://%s:%d%s", scheme, r.Host, r.port(), r.Selector)
	if r.Query != "" {
		u += "%09" + url.PathEscape(r.Query)
	}
	return u
}

// Addr returns host:port, defaulting the port to 70.
func (r *Request) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.port()))
}

func (r *Request) port() int {
	if r.Port == 0 {
		return DefaultPort
	}
	return r.Port
}

// TLSState returns the TLS state of the connection a server request arrived on,
// or nil for plaintext connections and client requests.
func (r *Request) TLSState() *tls.ConnectionState {
	if conn, ok := r.conn.(*tls.Conn); ok {
		state := conn.ConnectionState()
		return &state
	}
	return nil
}

// Context returns the request's context. To change the context, use
// WithContext.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r with its context changed
// to ctx. The provided ctx must be non-nil.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("nil context")
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

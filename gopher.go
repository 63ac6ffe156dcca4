package gopher

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"
)

// Wire constants shared by the client and the loopback server.
const (
	CRLF = "\r\n"
	Tab  = "\t"

	// LastLine terminates RFC1436 menus and Gopher+ "-1" bodies.
	LastLine = "." + CRLF

	DefaultPort = 70

	// NullHost is the hostname servers put on lines that point nowhere.
	NullHost = "(NULL)"
	// FakeSelector is the selector servers put on informational lines.
	FakeSelector = "fake"
)

// Gopher+ request suffixes placed after the selector (and query).
const (
	PlusItem           = "+"
	PlusAttributes     = "!"
	PlusMenuAttributes = "$"
)

// Protocol selects the dialect spoken by a Client.
type Protocol int

const (
	// RFC1436 is the original Gopher protocol.
	RFC1436 Protocol = iota
	// GopherPlus is the Gopher+ extension with response headers and attributes.
	GopherPlus
)

func (p Protocol) String() string {
	switch p {
	case RFC1436:
		return "RFC1436"
	case GopherPlus:
		return "Gopher+"
	}
	return "<Unknown>"
}

// ParseProtocol accepts the names used in configuration files and flags.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rfc1436", "gopher":
		return RFC1436, nil
	case "gopher+", "gopherplus", "plus":
		return GopherPlus, nil
	}
	return RFC1436, fmt.Errorf("unknown protocol %q", s)
}

// TLSPolicy decides whether a connection is upgraded to TLS before the selector is sent.
type TLSPolicy int

const (
	// TLSDefault on a Request defers to the Client; on a Client it means NoTLS.
	TLSDefault TLSPolicy = iota
	// NoTLS never attempts TLS.
	NoTLS
	// PreferTLS attempts TLS first and falls back to plaintext on any TLS failure.
	PreferTLS
	// OnlyTLS attempts TLS and fails when it cannot be established.
	OnlyTLS
)

func (p TLSPolicy) String() string {
	switch p {
	case TLSDefault:
		return "default"
	case NoTLS:
		return "none"
	case PreferTLS:
		return "prefer"
	case OnlyTLS:
		return "only"
	}
	return "<Unknown>"
}

// ParseTLSPolicy accepts "none", "prefer" and "only" (and "" for the default).
func ParseTLSPolicy(s string) (TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return TLSDefault, nil
	case "none", "off", "plain":
		return NoTLS, nil
	case "prefer":
		return PreferTLS, nil
	case "only", "require", "required":
		return OnlyTLS, nil
	}
	return TLSDefault, fmt.Errorf("unknown tls policy %q", s)
}

// ResponseWriter is handed to server handlers. Everything written goes to the
// connection verbatim; the connection is closed when the handler returns.
type ResponseWriter interface {
	io.Writer
	// WriteItem writes one menu line.
	WriteItem(item *MenuItem) error
}

// Handler is the interface a struct need to implement to be able to handle Gopher requests.
type Handler interface {
	ServeGopher(ResponseWriter, *Request)
}

type HandlerFunc func(ResponseWriter, *Request)

// ServeGopher calls f(w, r).
func (f HandlerFunc) ServeGopher(w ResponseWriter, r *Request) {
	f(w, r)
}

// NotFound replies with a single error item, which is how Gopher servers report failures.
func NotFound(w ResponseWriter, req *Request) {
	if req.Plus != "" {
		_, _ = io.WriteString(w, "--2"+CRLF)
	}
	_ = w.WriteItem(&MenuItem{
		Type:     TypeError,
		Name:     fmt.Sprintf("'%s' does not exist", req.Selector),
		Selector: req.Selector,
		Hostname: NullHost,
	})
	_, _ = io.WriteString(w, LastLine)
}

func TrapPanic(next HandlerFunc) HandlerFunc {
	return func(w ResponseWriter, req *Request) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("selector", req.Selector).
					Bytes("stack", debug.Stack()).Msg("trapped handler panic")
				_ = w.WriteItem(&MenuItem{Type: TypeError, Name: "Internal Server Error", Selector: FakeSelector, Hostname: NullHost})
			}
		}()
		next(w, req)
	}
}

// ServeFile streams file as the response body. Gopher+ requests get a "+-2" header.
func ServeFile(file *os.File) HandlerFunc {
	return func(w ResponseWriter, r *Request) {
		if r.Plus != "" {
			_ = WritePlusHeader(w, -2)
		}
		_, _ = io.Copy(w, file)
	}
}

func ServeFileName(name string) HandlerFunc {
	return func(w ResponseWriter, r *Request) {
		f, err := os.Open(name)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		ServeFile(f)(w, r)
	}
}

// WritePlusHeader writes a successful Gopher+ status line: -1, -2 or a byte count.
func WritePlusHeader(w io.Writer, size int) error {
	_, err := fmt.Fprintf(w, "+%d%s", size, CRLF)
	return err
}

// readLine reads up to and excluding the first CRLF, refusing lines longer than max.
func readLine(conn io.Reader, max int) ([]byte, error) {
	var line []byte
	delim := []byte(CRLF)
	// A small buffer is inefficient but a request line is small so it's okay
	buf := make([]byte, 1)

	for {
		_, err := conn.Read(buf)
		if err != nil {
			return []byte{}, err
		}

		line = append(line, buf...)
		if bytes.HasSuffix(line, delim) {
			return line[:len(line)-len(delim)], nil
		}
		if len(line) > max {
			return []byte{}, ErrRequestTooLong
		}
	}
}

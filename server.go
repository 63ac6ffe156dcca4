package gopher

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/rs/zerolog/log"
)

// maxRequestLine bounds selector, query and Gopher+ suffix together.
const maxRequestLine = 1024

// ListenAndServe create a TCP server on the specified address and pass
// new connections to the given handler.
// Each request is handled in a separate goroutine.
func ListenAndServe(addr string, handler Handler) error {
	if addr == "" {
		addr = "127.0.0.1:70"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer listener.Close()
	return Serve(listener, handler)
}

// ListenAndServeTLS is ListenAndServe over TLS with the given key pair.
func ListenAndServeTLS(addr, certFile, keyFile string, handler Handler) error {
	if addr == "" {
		addr = "127.0.0.1:7070"
	}
	listener, err := listenTLS(addr, certFile, keyFile)
	if err != nil {
		return err
	}
	defer listener.Close()
	return Serve(listener, handler)
}

func listenTLS(addr, certFile, keyFile string) (net.Listener, error) {
	cer, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates: %w", err)
	}

	config := &tls.Config{
		Certificates: []tls.Certificate{cer},
		MinVersion:   tls.VersionTLS12,
	}
	ln, err := tls.Listen("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return ln, nil
}

// Serve accepts connections on listener until it is closed. It returns nil
// when the listener was closed and the accept error otherwise.
func Serve(listener net.Listener, handler Handler) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		go handleConnection(conn, handler)
	}
}

func handleConnection(conn net.Conn, handler Handler) {
	defer conn.Close()
	request, err := getRequest(conn)
	if err != nil {
		log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("dropped gopher request")
		return
	}
	log.Debug().Str("selector", request.Selector).Str("plus", request.Plus).
		Str("remote", conn.RemoteAddr().String()).Msg("gopher request")

	handler.ServeGopher(&response{conn: conn}, request)
}

func getRequest(conn net.Conn) (*Request, error) {
	line, err := readLine(conn, maxRequestLine)
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	r := &Request{conn: conn}
	r.Reset(string(line))
	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		r.Host, r.Port = addr.IP.String(), addr.Port
	}
	return r, nil
}

// Reset fills r from a received request line: "selector[\tquery][\t+|!|$]".
func (r *Request) Reset(line string) {
	r.Selector, r.Query, r.Plus = "", "", ""
	fields := strings.Split(line, Tab)
	r.Selector, fields = fields[0], fields[1:]
	if n := len(fields); n > 0 {
		switch last := fields[n-1]; {
		case last == PlusAttributes, last == PlusMenuAttributes:
			r.Plus, fields = last, fields[:n-1]
		case last == PlusItem, strings.HasPrefix(last, PlusItem) && strings.Contains(last, "/"):
			// "+" optionally followed by a view, e.g. "+text/plain"
			r.Plus, fields = PlusItem, fields[:n-1]
		}
	}
	if len(fields) > 0 {
		r.Query = strings.Join(fields, Tab)
	}
}

// WriteMenu writes items as a menu followed by the last line marker.
func WriteMenu(w ResponseWriter, items []*MenuItem) error {
	for _, item := range items {
		if err := w.WriteItem(item); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, LastLine)
	return err
}

type response struct {
	conn net.Conn
	err  error
}

var _ ResponseWriter = (*response)(nil)

func (w *response) WriteItem(item *MenuItem) error {
	_, err := io.WriteString(w, item.Line()+CRLF)
	return err
}

// Write provides raw write. Once a write fails every later write fails too.
func (w *response) Write(body []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	var written int
	written, w.err = w.conn.Write(body)
	if w.err != nil {
		w.err = fmt.Errorf("failed to write response: %w", w.err)
	}
	return written, w.err
}

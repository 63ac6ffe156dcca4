package main

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	gopher "github.com/knowfox/gopher"
	"github.com/knowfox/gopher/internal/logging"
	"github.com/rs/zerolog/log"
)

//go:embed hello.txt
var helloFile []byte

type ExampleHandler struct {
	host string
	port int
	// file is served at /file; the embedded hello.txt when empty.
	file string
}

func (h ExampleHandler) ServeGopher(w gopher.ResponseWriter, req *gopher.Request) {
	log.Info().Str("selector", req.Selector).Str("plus", req.Plus).Bool("tls", req.TLSState() != nil).Msg("request")
	switch req.Plus {
	case gopher.PlusAttributes:
		h.serveAttributes(w, req)
		return
	case gopher.PlusMenuAttributes:
		h.serveMenuAttributes(w, req)
		return
	}
	switch req.Selector {
	case "", "/":
		if req.Plus != "" {
			requireNoError(gopher.WritePlusHeader(w, -1))
		}
		requireNoError(gopher.WriteMenu(w, h.rootMenu()))
	case "/hello.txt":
		if req.Plus != "" {
			requireNoError(gopher.WritePlusHeader(w, -2))
		}
		_, err := io.WriteString(w, "Hello, world!\r\n")
		requireNoError(err)
	case "/file":
		if h.file != "" {
			gopher.ServeFileName(h.file)(w, req)
			return
		}
		if req.Plus != "" {
			requireNoError(gopher.WritePlusHeader(w, -2))
		}
		_, err := w.Write(helloFile)
		requireNoError(err)
	case "/search":
		if req.Plus != "" {
			requireNoError(gopher.WritePlusHeader(w, -1))
		}
		requireNoError(gopher.WriteMenu(w, []*gopher.MenuItem{
			h.item(gopher.TypeInfo, fmt.Sprintf("You searched for %q", req.Query), gopher.FakeSelector),
			h.item(gopher.TypeText, "Hello", "/hello.txt"),
		}))
	case "/die":
		requireNoError(errors.New("must die"))
	default:
		gopher.NotFound(w, req)
	}
}

func (h ExampleHandler) rootMenu() []*gopher.MenuItem {
	return []*gopher.MenuItem{
		h.item(gopher.TypeInfo, "Welcome to the example server", gopher.FakeSelector),
		h.item(gopher.TypeText, "Hello", "/hello.txt"),
		h.item(gopher.TypeText, "A file from disk", "/file"),
		h.item(gopher.TypeSearch, "Search", "/search"),
	}
}

func (h ExampleHandler) item(t gopher.ItemType, name, selector string) *gopher.MenuItem {
	if selector == gopher.FakeSelector {
		return &gopher.MenuItem{Type: t, Name: name, Selector: selector, Hostname: gopher.NullHost}
	}
	return &gopher.MenuItem{Type: t, Name: name, Selector: selector, Hostname: h.host, Port: h.port}
}

func (h ExampleHandler) serveAttributes(w gopher.ResponseWriter, req *gopher.Request) {
	for _, item := range h.rootMenu() {
		if item.Selector == req.Selector {
			requireNoError(gopher.WritePlusHeader(w, -2))
			writeAttributes(w, item)
			return
		}
	}
	_, _ = io.WriteString(w, "--2\r\n")
}

func (h ExampleHandler) serveMenuAttributes(w gopher.ResponseWriter, req *gopher.Request) {
	requireNoError(gopher.WritePlusHeader(w, -2))
	for _, item := range h.rootMenu() {
		if item.Type != gopher.TypeInfo {
			writeAttributes(w, item)
		}
	}
}

func writeAttributes(w io.Writer, item *gopher.MenuItem) {
	_, err := fmt.Fprintf(w, "+INFO: %s\t+\r\n+ADMIN:\r\n Admin: Example Admin <admin@example.com>\r\n+VIEWS:\r\n text/plain: <1k>\r\n", item.Line())
	requireNoError(err)
}

func requireNoError(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	var host, cert, key, file string
	flag.StringVar(&host, "host", "127.0.0.1:7070", "listen on host and port.  Example: hostname:70")
	flag.StringVar(&cert, "cert", "", "certificate file, enables TLS")
	flag.StringVar(&key, "key", "", "private key associated with certificate file")
	flag.StringVar(&file, "file", "", "file served at /file instead of the built-in hello.txt")
	flag.Parse()

	logging.ConfigureRuntime("gopher-example")

	name, portStr, err := net.SplitHostPort(host)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -host")
	}
	port, _ := strconv.Atoi(portStr)
	handler := ExampleHandler{host: strings.Trim(name, "[]"), port: port, file: file}

	if cert != "" {
		err = gopher.ListenAndServeTLS(host, cert, key, gopher.TrapPanic(handler.ServeGopher))
	} else {
		err = gopher.ListenAndServe(host, gopher.TrapPanic(handler.ServeGopher))
	}
	if err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

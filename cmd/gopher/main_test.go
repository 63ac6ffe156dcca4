package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"

	gopher "github.com/knowfox/gopher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	addr := ln.Addr().(*net.TCPAddr)

	handler := gopher.HandlerFunc(func(w gopher.ResponseWriter, r *gopher.Request) {
		switch r.Selector {
		case "/menu":
			_ = gopher.WriteMenu(w, []*gopher.MenuItem{
				{Type: gopher.TypeText, Name: "About", Selector: "/about.txt", Hostname: addr.IP.String(), Port: addr.Port},
			})
		case "/about.txt":
			_, _ = io.WriteString(w, "about this server\r\n")
		case "/blob":
			_, _ = w.Write([]byte{0xff, 0xfe, 0x00, 0x01})
		case "/search":
			_, _ = fmt.Fprintf(w, "iyou asked for %s\tfake\t(NULL)\t0\r\n.\r\n", r.Query)
		default:
			gopher.NotFound(w, r)
		}
	})
	go func() { _ = gopher.Serve(ln, handler) }()
	return fmt.Sprintf("gopher://%s:%d", addr.IP.String(), addr.Port)
}

func newClient(t *testing.T) *gopher.Client {
	t.Helper()
	client, err := gopher.NewClient(gopher.DefaultConfig())
	require.NoError(t, err)
	return client
}

func TestFetchAllKeepsOrder(t *testing.T) {
	base := startServer(t)
	client := newClient(t)

	urls := []string{base + "/about.txt", "not a url", base + "/menu", base + "/about.txt"}
	results := fetchAll(context.Background(), client, urls, 2, options{timing: true})
	require.Len(t, results, 4)

	assert.NoError(t, results[0].err)
	assert.Equal(t, "about this server\r\n", results[0].out.String())
	assert.Contains(t, results[0].timing.String(), "first byte wait:")

	assert.ErrorIs(t, results[1].err, gopher.ErrInvalidURL)

	assert.NoError(t, results[2].err)
	assert.Contains(t, results[2].out.String(), "0About\t/about.txt\t")
	assert.NoError(t, results[3].err)
}

func TestFetchMenuAndSearch(t *testing.T) {
	base := startServer(t)
	client := newClient(t)

	results := fetchAll(context.Background(), client, []string{base + "/menu"}, 1, options{menu: true})
	require.NoError(t, results[0].err)
	assert.Contains(t, results[0].out.String(), "0 About gopher://127.0.0.1:")

	results = fetchAll(context.Background(), client, []string{base + "/search"}, 1, options{search: "moles"})
	require.NoError(t, results[0].err)
	assert.Equal(t, "i you asked for moles\n", results[0].out.String())
}

func TestFetchBinaryGuard(t *testing.T) {
	base := startServer(t)
	client := newClient(t)

	results := fetchAll(context.Background(), client, []string{base + "/blob"}, 1, options{terminal: true})
	assert.ErrorIs(t, results[0].err, errBinaryToTerminal)
	assert.Zero(t, results[0].out.Len())

	results = fetchAll(context.Background(), client, []string{base + "/blob"}, 1, options{terminal: true, force: true})
	require.NoError(t, results[0].err)
	assert.Equal(t, []byte{0xff, 0xfe, 0x00, 0x01}, results[0].out.Bytes())
}

func TestFetchAttributesNeedsGopherPlus(t *testing.T) {
	base := startServer(t)
	client := newClient(t)

	results := fetchAll(context.Background(), client, []string{base + "/about.txt"}, 1, options{attrs: true})
	assert.ErrorIs(t, results[0].err, gopher.ErrNotGopherPlus)
}

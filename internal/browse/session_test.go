package browse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	gopher "github.com/knowfox/gopher"
	"github.com/knowfox/gopher/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type site struct {
	host string
	port int
}

func (s site) item(t gopher.ItemType, name, selector string) *gopher.MenuItem {
	return &gopher.MenuItem{Type: t, Name: name, Selector: selector, Hostname: s.host, Port: s.port}
}

func (s site) ServeGopher(w gopher.ResponseWriter, r *gopher.Request) {
	if r.Plus == gopher.PlusAttributes {
		_ = gopher.WritePlusHeader(w, -2)
		_, _ = fmt.Fprintf(w, "+INFO: 0Hello\t%s\t%s\t%d\t+\r\n+ADMIN:\r\n Admin: Test <t@example.com>\r\n", r.Selector, s.host, s.port)
		return
	}
	if r.Plus == gopher.PlusItem {
		_ = gopher.WritePlusHeader(w, -2)
	}
	switch r.Selector {
	case "":
		_ = gopher.WriteMenu(w, []*gopher.MenuItem{
			{Type: gopher.TypeInfo, Name: "Welcome", Selector: gopher.FakeSelector, Hostname: gopher.NullHost},
			s.item(gopher.TypeText, "Hello", "/hello.txt"),
			s.item(gopher.TypeMenu, "Sub menu", "/sub"),
			s.item(gopher.TypeSearch, "Search", "/search"),
		})
	case "/hello.txt":
		_, _ = io.WriteString(w, "Hello, world!\r\n")
	case "/sub":
		_ = gopher.WriteMenu(w, []*gopher.MenuItem{s.item(gopher.TypeText, "Deep", "/deep.txt")})
	case "/search":
		_ = gopher.WriteMenu(w, []*gopher.MenuItem{
			{Type: gopher.TypeInfo, Name: "results for " + r.Query, Selector: gopher.FakeSelector, Hostname: gopher.NullHost},
		})
	default:
		gopher.NotFound(w, r)
	}
}

func startSite(t *testing.T) site {
	t.Helper()
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	addr := ln.Addr().(*net.TCPAddr)
	s := site{host: addr.IP.String(), port: addr.Port}
	go func() { _ = gopher.Serve(ln, s) }()
	return s
}

func newSession(t *testing.T, protocol gopher.Protocol) *Session {
	t.Helper()
	cfg := gopher.DefaultConfig()
	cfg.Protocol = protocol
	client, err := gopher.NewClient(cfg)
	require.NoError(t, err)
	return NewSession(client)
}

func (s site) url(selector string) string {
	return fmt.Sprintf("gopher://%s:%d%s", s.host, s.port, selector)
}

func TestSessionNavigation(t *testing.T) {
	srv := startSite(t)
	s := newSession(t, gopher.RFC1436)
	ctx := context.Background()

	assert.Nil(t, s.Current())
	_, err := s.Back()
	assert.ErrorIs(t, err, ErrNoHistory)
	_, err = s.Follow(ctx, 1, "")
	assert.ErrorIs(t, err, ErrNoPage)

	root, err := s.Open(ctx, srv.url(""))
	require.NoError(t, err)
	require.NotNil(t, root.Menu)
	assert.Len(t, root.Menu.Items, 4)
	assert.Len(t, root.Menu.Links(), 3)

	doc, err := s.Follow(ctx, 1, "")
	require.NoError(t, err)
	assert.Nil(t, doc.Menu)
	assert.Equal(t, "Hello, world!\r\n", doc.Text())
	assert.Equal(t, 2, s.Depth())

	_, err = s.Follow(ctx, 1, "")
	assert.ErrorIs(t, err, ErrNotMenu)

	back, err := s.Back()
	require.NoError(t, err)
	assert.Same(t, root, back)

	sub, err := s.Follow(ctx, 2, "")
	require.NoError(t, err)
	require.NotNil(t, sub.Menu)
	assert.Equal(t, "/sub", sub.Menu.Selector)
	assert.Equal(t, "Deep", sub.Menu.Items[0].Name)

	_, err = s.Back()
	require.NoError(t, err)
	_, err = s.Follow(ctx, 7, "")
	assert.ErrorIs(t, err, ErrNoSuchLink)
}

func TestSessionSearch(t *testing.T) {
	srv := startSite(t)
	s := newSession(t, gopher.RFC1436)
	ctx := context.Background()

	_, err := s.Open(ctx, srv.url(""))
	require.NoError(t, err)

	_, err = s.Follow(ctx, 3, "")
	assert.ErrorIs(t, err, gopher.ErrMissingQuery)
	assert.Equal(t, 1, s.Depth())

	page, err := s.Follow(ctx, 3, "gophers")
	require.NoError(t, err)
	require.NotNil(t, page.Menu)
	assert.Equal(t, "results for gophers", page.Menu.Items[0].Name)

	reloaded, err := s.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "results for gophers", reloaded.Menu.Items[0].Name)
	assert.Equal(t, 2, s.Depth())
}

func TestSessionAttributes(t *testing.T) {
	srv := startSite(t)
	ctx := context.Background()

	plain := newSession(t, gopher.RFC1436)
	_, err := plain.Open(ctx, srv.url(""))
	require.NoError(t, err)
	_, err = plain.Attributes(ctx, 1)
	assert.ErrorIs(t, err, gopher.ErrNotGopherPlus)

	plus := newSession(t, gopher.GopherPlus)
	_, err = plus.Open(ctx, srv.url(""))
	require.NoError(t, err)
	item, err := plus.Attributes(ctx, 1)
	require.NoError(t, err)
	require.Contains(t, item.Attributes, "ADMIN")
	assert.Equal(t, "Test <t@example.com>", item.Attributes["ADMIN"].Lines["Admin"])

	link, err := plus.Link(1)
	require.NoError(t, err)
	assert.Nil(t, link.Attributes)
}

func TestRun(t *testing.T) {
	srv := startSite(t)
	s := newSession(t, gopher.RFC1436)

	input := strings.Join([]string{
		"g " + srv.url(""),
		"1",
		"b",
		"3",
		"gophers",
		"x",
		"9",
		"q",
		"never read",
	}, "\n")
	var out bytes.Buffer
	err := Run(context.Background(), s, NewScannerEditor(strings.NewReader(input), &out), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "   1 [txt] Hello")
	assert.Contains(t, text, "   2 [dir] Sub menu")
	assert.Contains(t, text, "Hello, world!")
	assert.Contains(t, text, queryPrompt)
	assert.Contains(t, text, "results for gophers")
	assert.Contains(t, text, `unknown command "x"`)
	assert.Contains(t, text, "error: browse: no such link")
	assert.Equal(t, 2, s.Depth())
}

func TestRunEndOfInput(t *testing.T) {
	s := newSession(t, gopher.RFC1436)
	var out bytes.Buffer
	err := Run(context.Background(), s, NewScannerEditor(strings.NewReader("b\n"), &out), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error: browse: already at the first page")
}

package browse

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	gopher "github.com/knowfox/gopher"
)

const (
	prompt      = "gopher> "
	queryPrompt = "query> "
)

const help = `commands:
  <n>        follow link n
  g <url>    open a gopher URL
  b          back
  r          reload
  a <n>      show the Gopher+ attributes of link n
  h          help
  q          quit
`

// Run reads commands from in until "q" or end of input. Failed commands are
// reported on out and do not end the loop.
func Run(ctx context.Context, s *Session, in LineReader, out io.Writer) error {
	if page := s.Current(); page != nil {
		Render(out, page)
	}
	for {
		line, err := in.GetLine(prompt)
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)

		var page *Page
		switch cmd {
		case "":
			continue
		case "q", "quit":
			return nil
		case "h", "help", "?":
			fmt.Fprint(out, help)
			continue
		case "g":
			page, err = s.Open(ctx, arg)
		case "b":
			page, err = s.Back()
		case "r":
			page, err = s.Reload(ctx)
		case "a":
			var n int
			if n, err = strconv.Atoi(arg); err == nil {
				var item *gopher.MenuItem
				if item, err = s.Attributes(ctx, n); err == nil {
					RenderAttributes(out, item)
					continue
				}
			}
		default:
			n, convErr := strconv.Atoi(cmd)
			if convErr != nil {
				fmt.Fprintf(out, "unknown command %q, h for help\n", cmd)
				continue
			}
			page, err = follow(ctx, s, in, n)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		Render(out, page)
	}
}

func follow(ctx context.Context, s *Session, in LineReader, n int) (*Page, error) {
	item, err := s.Link(n)
	if err != nil {
		return nil, err
	}
	var query string
	if item.Type == gopher.TypeSearch {
		if query, err = in.GetLine(queryPrompt); err != nil {
			return nil, err
		}
	}
	return s.Follow(ctx, n, strings.TrimSpace(query))
}

// Render prints a page: menus with numbered links, documents as text.
func Render(w io.Writer, page *Page) {
	fmt.Fprintf(w, "--- %s\n", page.Title())
	if page.Menu != nil {
		RenderMenu(w, page.Menu)
		return
	}
	if text := page.Text(); text != "" {
		fmt.Fprint(w, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
		return
	}
	fmt.Fprintf(w, "(%d bytes of binary data)\n", page.Response.BodySize())
}

func RenderMenu(w io.Writer, menu *gopher.Menu) {
	n := 0
	for _, item := range menu.Items {
		if !item.Navigable() {
			fmt.Fprintf(w, "      %s\n", item.Name)
			continue
		}
		n++
		fmt.Fprintf(w, "%4d %s %s\n", n, label(item.Type), item.Name)
	}
	for _, problem := range menu.Problems {
		fmt.Fprintf(w, "  !! %v\n", problem)
	}
}

func RenderAttributes(w io.Writer, item *gopher.MenuItem) {
	names := make([]string, 0, len(item.Attributes))
	for name := range item.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "--- attributes of %s\n", item.Name)
	for _, name := range names {
		block := item.Attributes[name]
		fmt.Fprintf(w, "+%s: %s\n", block.Name, block.Descriptor)
		fmt.Fprint(w, strings.ReplaceAll(block.RawLines, gopher.CRLF, "\n"))
	}
}

func label(t gopher.ItemType) string {
	switch t {
	case gopher.TypeMenu:
		return "[dir]"
	case gopher.TypeSearch:
		return "[ask]"
	case gopher.TypeText:
		return "[txt]"
	case gopher.TypeHTML:
		return "[web]"
	case gopher.TypeError:
		return "[err]"
	}
	if t.IsBinary() {
		return "[bin]"
	}
	return fmt.Sprintf("[ %s ]", t)
}

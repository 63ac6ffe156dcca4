// Package browse keeps the navigation state of an interactive Gopher session.
package browse

import (
	"context"
	"errors"
	"fmt"

	gopher "github.com/knowfox/gopher"
)

var (
	ErrNoPage     = errors.New("browse: nothing opened yet")
	ErrNoHistory  = errors.New("browse: already at the first page")
	ErrNoSuchLink = errors.New("browse: no such link")
	ErrNotMenu    = errors.New("browse: current page is not a menu")
)

// Page is one entry of the history. Exactly one of Menu and Response is set.
type Page struct {
	Request *gopher.Request
	// Item is the menu item the page was reached through, nil for opened URLs.
	Item     *gopher.MenuItem
	Menu     *gopher.Menu
	Response *gopher.Response
}

// Text returns the document body, or "" for menus and binary items.
func (p *Page) Text() string {
	if p.Response == nil || (p.Item != nil && p.Item.Type.IsBinary()) {
		return ""
	}
	return string(p.Response.Body)
}

func (p *Page) Title() string {
	return p.Request.URL()
}

// Session is a history stack over a Client. It is not safe for concurrent use.
type Session struct {
	client  *gopher.Client
	history []*Page
}

func NewSession(client *gopher.Client) *Session {
	return &Session{client: client}
}

// Current returns the page on top of the history, or nil.
func (s *Session) Current() *Page {
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

// Depth is the number of pages in the history.
func (s *Session) Depth() int { return len(s.history) }

// Open fetches a gopher URL as a menu and pushes it. URLs with a query are
// sent as searches.
func (s *Session) Open(ctx context.Context, rawurl string) (*Page, error) {
	req, err := gopher.NewRequestWithContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	var menu *gopher.Menu
	if req.Query != "" {
		menu, err = s.client.Search(req)
	} else {
		menu, err = s.client.DownloadMenu(req)
	}
	if err != nil {
		return nil, err
	}
	return s.push(&Page{Request: req, Menu: menu}), nil
}

// Link returns the n-th navigable item (1-based) of the current menu.
func (s *Session) Link(n int) (*gopher.MenuItem, error) {
	page := s.Current()
	if page == nil {
		return nil, ErrNoPage
	}
	if page.Menu == nil {
		return nil, ErrNotMenu
	}
	links := page.Menu.Links()
	if n < 1 || n > len(links) {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoSuchLink, n, len(links))
	}
	return links[n-1], nil
}

// Follow opens the n-th link of the current menu and pushes the result.
// query is only used for search items, which fail without one.
func (s *Session) Follow(ctx context.Context, n int, query string) (*Page, error) {
	item, err := s.Link(n)
	if err != nil {
		return nil, err
	}
	req, err := item.Request()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	page, err := s.fetch(req, item, query)
	if err != nil {
		return nil, err
	}
	return s.push(page), nil
}

// Back pops the current page and returns the one below it.
func (s *Session) Back() (*Page, error) {
	if len(s.history) < 2 {
		return nil, ErrNoHistory
	}
	s.history = s.history[:len(s.history)-1]
	return s.Current(), nil
}

// Reload fetches the current page again and replaces it.
func (s *Session) Reload(ctx context.Context) (*Page, error) {
	page := s.Current()
	if page == nil {
		return nil, ErrNoPage
	}
	req := page.Request.WithContext(ctx)
	var fresh *Page
	var err error
	if page.Item != nil {
		fresh, err = s.fetch(req, page.Item, req.Query)
	} else {
		fresh = &Page{Request: req}
		if req.Query != "" {
			fresh.Menu, err = s.client.Search(req)
		} else {
			fresh.Menu, err = s.client.DownloadMenu(req)
		}
	}
	if err != nil {
		return nil, err
	}
	s.history[len(s.history)-1] = fresh
	return fresh, nil
}

// Attributes fetches the Gopher+ attributes of the n-th link.
func (s *Session) Attributes(ctx context.Context, n int) (*gopher.MenuItem, error) {
	item, err := s.Link(n)
	if err != nil {
		return nil, err
	}
	return s.client.PopulateAttributes(ctx, item)
}

func (s *Session) fetch(req *gopher.Request, item *gopher.MenuItem, query string) (*Page, error) {
	page := &Page{Request: req, Item: item}
	var err error
	switch item.Type {
	case gopher.TypeMenu:
		page.Menu, err = s.client.DownloadMenu(req)
	case gopher.TypeSearch:
		req.Query = query
		page.Menu, err = s.client.Search(req)
	default:
		page.Response, err = s.client.DownloadItem(req)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Session) push(page *Page) *Page {
	s.history = append(s.history, page)
	return page
}

package gopher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Client fetches menus and items from Gopher servers.
//
// A Client holds only its configuration and is safe for concurrent use.
// Every call opens and closes its own connection.
type Client struct {
	config  Config
	handler ProtocolHandler
	log     zerolog.Logger
}

// NewClient returns a client for config. The protocol handler is chosen here
// and never changes afterwards.
func NewClient(config Config) (*Client, error) {
	handler, err := NewProtocolHandler(config.Protocol, config.Charset)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Client{config: config, handler: handler, log: logger}, nil
}

func (c *Client) Protocol() Protocol { return c.handler.Protocol() }

// Handler returns the protocol handler, e.g. to parse a menu out of a
// response obtained with DownloadItem.
func (c *Client) Handler() ProtocolHandler { return c.handler }

// DownloadMenu fetches req.Selector and parses it as a menu.
func (c *Client) DownloadMenu(req *Request) (*Menu, error) {
	resp, err := c.do(req, c.handler.SelectorString(req.Selector))
	if err != nil {
		return nil, err
	}
	menu, err := c.handler.ParseMenu(resp)
	if err != nil {
		return nil, err
	}
	return menu.at(req), nil
}

// DownloadItem fetches req.Selector without interpreting the payload. A
// request carrying a query is sent as a search, so search results can be
// fetched raw as well.
func (c *Client) DownloadItem(req *Request) (*Response, error) {
	if req.Query != "" {
		return c.do(req, c.handler.SearchString(req.Selector, req.Query))
	}
	return c.do(req, c.handler.SelectorString(req.Selector))
}

// Search sends req.Query to the search server at req.Selector and parses the
// result menu.
func (c *Client) Search(req *Request) (*Menu, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrMissingQuery
	}
	resp, err := c.do(req, c.handler.SearchString(req.Selector, req.Query))
	if err != nil {
		return nil, err
	}
	menu, err := c.handler.ParseMenu(resp)
	if err != nil {
		return nil, err
	}
	return menu.at(req), nil
}

// Fetch downloads the item a gopher URL points to.
func (c *Client) Fetch(ctx context.Context, rawurl string) (*Response, error) {
	req, err := NewRequestWithContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return c.DownloadItem(req)
}

// PopulateAttributes fetches the Gopher+ attributes of item and returns a copy
// of it carrying them. item itself is left untouched.
func (c *Client) PopulateAttributes(ctx context.Context, item *MenuItem) (*MenuItem, error) {
	ah, ok := c.handler.(AttributeHandler)
	if !ok {
		return nil, ErrNotGopherPlus
	}
	req, err := item.Request()
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req.WithContext(ctx), ah.AttributeString(item.Selector))
	if err != nil {
		return nil, err
	}
	if resp.Failed() {
		return nil, fmt.Errorf("%w: %s: %s", ErrPlusFailure, resp.Header, item.Selector)
	}
	body, err := ah.DecodeText(resp.Body)
	if err != nil {
		return nil, err
	}
	// The block parser expects the status line the framer already took off.
	return item.withAttributes(ParseAttributeBlock(string(resp.Header) + CRLF + body)), nil
}

// PopulateMenuAttributes fetches the attributes of every item of menu in one
// request and returns a copy of the menu whose items carry them. Each INFO run
// of the response goes to the first unmatched item with the same selector
// (and the same host and port when the INFO line names them). Items without a
// matching run keep nil attributes.
func (c *Client) PopulateMenuAttributes(ctx context.Context, menu *Menu) (*Menu, error) {
	ah, ok := c.handler.(AttributeHandler)
	if !ok {
		return nil, ErrNotGopherPlus
	}
	req, err := menu.MenuItem.Request()
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req.WithContext(ctx), ah.MenuAttributeString(menu.Selector))
	if err != nil {
		return nil, err
	}
	if resp.Failed() {
		return nil, fmt.Errorf("%w: %s: %s", ErrPlusFailure, resp.Header, menu.Selector)
	}
	body, err := ah.DecodeText(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &Menu{
		MenuItem: menu.MenuItem,
		Items:    make([]*MenuItem, len(menu.Items)),
		Problems: menu.Problems,
	}
	copy(out.Items, menu.Items)
	claimed := make([]bool, len(menu.Items))
	for _, set := range ParseMenuAttributes(body) {
		idx := matchAttributeSet(menu.Items, claimed, set)
		if idx < 0 {
			c.log.Debug().Str("selector", set.Info.Selector).Msg("attribute block matches no menu item")
			continue
		}
		claimed[idx] = true
		out.Items[idx] = menu.Items[idx].withAttributes(set.Attributes)
	}
	return out, nil
}

func matchAttributeSet(items []*MenuItem, claimed []bool, set *ItemAttributeSet) int {
	// A descriptor without a selector field keeps the placeholder selector.
	if !set.Exact && set.Info.Selector == FakeSelector {
		return -1
	}
	for i, item := range items {
		if claimed[i] || !item.Navigable() || item.Selector != set.Info.Selector {
			continue
		}
		if set.Exact && item.Hostname != "" && item.Port != 0 {
			if !strings.EqualFold(item.Hostname, set.Info.Hostname) || item.Port != set.Info.Port {
				continue
			}
		}
		return i
	}
	return -1
}

func (c *Client) do(req *Request, query string) (*Response, error) {
	if req.Host == "" {
		return nil, ErrMissingHost
	}
	return c.exchange(req.Context(), req, query)
}

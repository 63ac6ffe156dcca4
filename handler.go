package gopher

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ProtocolHandler knows how to phrase requests in one protocol dialect and how
// to read menus out of responses that have already been framed.
type ProtocolHandler interface {
	Protocol() Protocol
	// SelectorString is the line sent to fetch selector.
	SelectorString(selector string) string
	// SearchString is the line sent to query a search server.
	SearchString(selector, query string) string
	// ParseMenu decodes resp.Body and parses it as a menu.
	ParseMenu(resp *Response) (*Menu, error)
}

// AttributeHandler is implemented by dialects that support Gopher+ attributes.
type AttributeHandler interface {
	ProtocolHandler
	// AttributeString asks for the attributes of one item.
	AttributeString(selector string) string
	// MenuAttributeString asks for the attributes of every item of a menu.
	MenuAttributeString(selector string) string
	// DecodeText decodes attribute text with the handler's charset.
	DecodeText(b []byte) (string, error)
}

// NewProtocolHandler returns the handler for protocol. charset names the
// encoding of menu text ("" for UTF-8) as understood by htmlindex.
func NewProtocolHandler(protocol Protocol, charset string) (ProtocolHandler, error) {
	dec, err := lookupDecoder(charset)
	if err != nil {
		return nil, err
	}
	base := rfc1436Handler{decoder: dec}
	switch protocol {
	case RFC1436:
		return base, nil
	case GopherPlus:
		return plusHandler{rfc1436Handler: base}, nil
	}
	return nil, fmt.Errorf("gopher: unsupported protocol %v", protocol)
}

func lookupDecoder(charset string) (encoding.Encoding, error) {
	if strings.TrimSpace(charset) == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("gopher: unknown charset %q: %w", charset, err)
	}
	return enc, nil
}

type rfc1436Handler struct {
	decoder encoding.Encoding
}

func (rfc1436Handler) Protocol() Protocol { return RFC1436 }

func (rfc1436Handler) SelectorString(selector string) string {
	return selector + CRLF
}

func (rfc1436Handler) SearchString(selector, query string) string {
	return selector + Tab + query + CRLF
}

func (h rfc1436Handler) ParseMenu(resp *Response) (*Menu, error) {
	text, err := h.DecodeText(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseMenu(strings.TrimSpace(text)), nil
}

func (h rfc1436Handler) DecodeText(b []byte) (string, error) {
	if h.decoder == nil {
		return string(b), nil
	}
	out, err := h.decoder.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("gopher: failed to decode menu text: %w", err)
	}
	return string(out), nil
}

type plusHandler struct {
	rfc1436Handler
}

var _ AttributeHandler = plusHandler{}

func (plusHandler) Protocol() Protocol { return GopherPlus }

func (plusHandler) SelectorString(selector string) string {
	return selector + Tab + PlusItem + CRLF
}

func (plusHandler) SearchString(selector, query string) string {
	return selector + Tab + query + Tab + PlusItem + CRLF
}

func (plusHandler) AttributeString(selector string) string {
	return selector + Tab + PlusAttributes + CRLF
}

func (plusHandler) MenuAttributeString(selector string) string {
	return selector + Tab + PlusMenuAttributes + CRLF
}

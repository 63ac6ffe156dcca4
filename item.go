package gopher

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ItemType is the single character that starts every menu line.
type ItemType byte

// Provides item types.
const (
	TypeText        ItemType = '0'
	TypeMenu        ItemType = '1'
	TypeCSO         ItemType = '2'
	TypeError       ItemType = '3'
	TypeBinHex      ItemType = '4'
	TypeDOSFile     ItemType = '5'
	TypeUUEncoded   ItemType = '6'
	TypeSearch      ItemType = '7'
	TypeTelnet      ItemType = '8'
	TypeBinary      ItemType = '9'
	TypeMirror      ItemType = '+'
	TypeGIF         ItemType = 'g'
	TypeImage       ItemType = 'I'
	TypeTelnet3270  ItemType = 'T'
	TypeDoc         ItemType = 'd'
	TypeHTML        ItemType = 'h'
	TypeInfo        ItemType = 'i'
	TypeSound       ItemType = 's'
	TypePNG         ItemType = 'p'
	TypeMIME        ItemType = 'M'
	TypeCalendar    ItemType = 'c'
	TypePlusImage   ItemType = ':'
	TypePlusVideo   ItemType = ';'
	TypePlusAudio   ItemType = '<'
	TypeUnknown     ItemType = '?'
	typeLastLine    ItemType = '.'
	defaultItemType          = TypeUnknown
)

func (t ItemType) String() string {
	return string(rune(t))
}

// IsBinary reports whether payloads of this type are opaque bytes rather than text.
func (t ItemType) IsBinary() bool {
	switch t {
	case TypeDOSFile, TypeBinary, TypeGIF, TypeImage, TypeSound, TypePNG,
		TypePlusImage, TypePlusVideo, TypePlusAudio, TypeDoc:
		return true
	}
	return false
}

// MenuItem is one entry of a Gopher menu.
//
// Items are built once from server bytes and not modified afterwards;
// attribute population returns a copy carrying the attributes.
type MenuItem struct {
	Type     ItemType
	Name     string
	Selector string
	Hostname string
	// Port 0 means the item has no target.
	Port int
	// Original is the unparsed line the item was built from.
	Original string

	// Attributes holds Gopher+ attribute blocks by name. It is nil until populated.
	Attributes map[string]*ItemAttributes
}

func newMenuItem() *MenuItem {
	return &MenuItem{Type: defaultItemType, Selector: FakeSelector}
}

// ParseMenuLine parses "<type><name>\t<selector>\t<host>\t<port>[\t...]".
//
// A usable item is always returned. The error, a *LineError, is non-nil when
// fields were missing, the port was not a number or the type was not a single
// ASCII byte; the item then keeps defaults for what could not be read.
func ParseMenuLine(line string) (*MenuItem, error) {
	item := newMenuItem()
	item.Original = line
	if line == "" {
		return item, &LineError{Text: line, Reason: "empty line"}
	}
	var degraded string
	rest := line[1:]
	if r, size := utf8.DecodeRuneInString(line); r >= utf8.RuneSelf {
		// keep the name valid UTF-8 when the type is missing
		degraded = fmt.Sprintf("non-ASCII item type %q", r)
		rest = line[size:]
	} else {
		item.Type = ItemType(line[0])
	}

	parts := strings.Split(rest, Tab)
	item.Name = parts[0]
	if len(parts) > 1 {
		item.Selector = parts[1]
	}
	if len(parts) > 2 {
		item.Hostname = parts[2]
	}
	if len(parts) < 4 {
		return item, &LineError{Text: line, Reason: fmt.Sprintf("expected 4 fields, got %d", len(parts))}
	}
	port, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil || port < 0 {
		return item, &LineError{Text: line, Reason: fmt.Sprintf("invalid port %q", parts[3])}
	}
	item.Port = port
	if degraded != "" {
		return item, &LineError{Text: line, Reason: degraded}
	}
	return item, nil
}

// Navigable reports whether the item points at a selector on a reachable host.
func (i *MenuItem) Navigable() bool {
	return i.Selector != FakeSelector && i.Port != 0 && i.Hostname != NullHost && i.Hostname != ""
}

func (i *MenuItem) String() string {
	if i.Selector == FakeSelector || i.Port == 0 || i.Hostname == NullHost {
		return fmt.Sprintf("%s %s", i.Type, i.Name)
	}
	return fmt.Sprintf("%s %s gopher://%s:%d%s", i.Type, i.Name, i.Hostname, i.Port, i.Selector)
}

// Line encodes the item as a menu line, without the trailing CRLF.
func (i *MenuItem) Line() string {
	return fmt.Sprintf("%s%s\t%s\t%s\t%d", i.Type, i.Name, i.Selector, i.Hostname, i.Port)
}

// Request builds a request for the item's target.
func (i *MenuItem) Request() (*Request, error) {
	if !i.Navigable() {
		return nil, fmt.Errorf("%w: %s", ErrNotNavigable, i)
	}
	return NewRequest(i.Hostname, i.Port, i.Selector), nil
}

// withAttributes returns a shallow copy of the item carrying attrs.
func (i *MenuItem) withAttributes(attrs map[string]*ItemAttributes) *MenuItem {
	copied := *i
	copied.Attributes = attrs
	return &copied
}

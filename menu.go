package gopher

import (
	"strings"
)

// Menu is a directory listing. It is an item in its own right: the embedded
// MenuItem identifies where the menu was fetched from.
type Menu struct {
	MenuItem

	// Items are in the order the server sent them.
	Items []*MenuItem

	// Problems lists the lines that were degraded while parsing.
	Problems []*LineError
}

// ParseMenu builds a menu from decoded menu text. Lines are separated by CRLF;
// empty lines are skipped and a lone "." ends the menu. A malformed line never
// aborts parsing, it is kept as a best-effort item and recorded in Problems.
func ParseMenu(text string) *Menu {
	menu := &Menu{MenuItem: MenuItem{Type: TypeMenu, Selector: FakeSelector}}
	for n, line := range strings.Split(text, CRLF) {
		if line == "" {
			continue
		}
		if line == string(typeLastLine) {
			break
		}
		item, err := ParseMenuLine(line)
		if err != nil {
			lerr := err.(*LineError)
			lerr.Line = n + 1
			menu.Problems = append(menu.Problems, lerr)
		}
		menu.Items = append(menu.Items, item)
	}
	return menu
}

// Links returns the items that point somewhere, skipping informational lines.
func (m *Menu) Links() []*MenuItem {
	items := make([]*MenuItem, 0, len(m.Items))
	for _, item := range m.Items {
		if item.Navigable() {
			items = append(items, item)
		}
	}
	return items
}

func (m *Menu) String() string {
	var b strings.Builder
	for _, item := range m.Items {
		b.WriteString(item.String())
		b.WriteString("\n")
	}
	return b.String()
}

// at fixes the identity of the menu to the request it was fetched with.
func (m *Menu) at(req *Request) *Menu {
	m.Hostname = req.Host
	m.Port = req.port()
	m.Selector = req.Selector
	m.Name = req.Selector
	return m
}

package gopher

import (
	"strings"
)

// ItemAttributes is one named Gopher+ attribute block, such as INFO, ADMIN or VIEWS.
//
// RawLines and Lines are two views of the same source lines: RawLines keeps
// them verbatim (CRLF terminated), Lines holds those that read as "key: value".
type ItemAttributes struct {
	// Name of the block without the leading '+'.
	Name string
	// Descriptor is the rest of the "+NAME:" line.
	Descriptor string
	RawLines   string
	Lines      map[string]string
}

// ItemAttributeSet is the attribute map of one item in a menu attribute response,
// together with the item its INFO block describes.
type ItemAttributeSet struct {
	Info *MenuItem
	// Exact is set when the INFO line was well formed, so its host and port
	// can be trusted for matching as well as its selector.
	Exact      bool
	Attributes map[string]*ItemAttributes
}

const infoBlockPrefix = "+INFO:"

// ParseAttributeBlock parses the text of a Gopher+ "!" response. The first
// line is the Gopher+ status line and is always discarded.
func ParseAttributeBlock(text string) map[string]*ItemAttributes {
	lines := splitAttributeLines(text)
	if len(lines) > 0 {
		lines = lines[1:]
	}
	return parseBlocks(lines)
}

// ParseMenuAttributes parses the body of a Gopher+ "$" response, which is the
// attribute blocks of every item in a menu back to back. Each item's run starts
// with its "+INFO:" line; the INFO descriptor is parsed as a menu line so the
// run can be matched with the menu item it belongs to.
func ParseMenuAttributes(body string) []*ItemAttributeSet {
	var sets []*ItemAttributeSet
	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		attrs := parseBlocks(run)
		info, err := ParseMenuLine(attrs["INFO"].Descriptor)
		sets = append(sets, &ItemAttributeSet{Info: info, Exact: err == nil, Attributes: attrs})
		run = nil
	}
	for _, line := range splitAttributeLines(body) {
		if strings.HasPrefix(line, infoBlockPrefix) {
			flush()
		} else if len(run) == 0 {
			// before the first INFO block
			continue
		}
		run = append(run, line)
	}
	flush()
	return sets
}

func splitAttributeLines(text string) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func parseBlocks(lines []string) map[string]*ItemAttributes {
	blocks := make(map[string]*ItemAttributes)
	var current *ItemAttributes
	for _, line := range lines {
		if strings.HasPrefix(line, "+") {
			name, descriptor := line[1:], ""
			if sep := strings.Index(line, ":"); sep >= 0 {
				name, descriptor = line[1:sep], strings.TrimSpace(line[sep+1:])
			}
			current = &ItemAttributes{
				Name:       name,
				Descriptor: descriptor,
				Lines:      make(map[string]string),
			}
			blocks[name] = current
			continue
		}
		if current == nil {
			continue
		}
		current.RawLines += line + CRLF
		sep := strings.Index(line, ":")
		if sep < 0 {
			continue
		}
		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])
		if key == "" || value == "" {
			continue
		}
		current.Lines[key] = value
	}
	return blocks
}

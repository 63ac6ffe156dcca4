package gopher_test

import (
	"testing"
	"unicode/utf8"

	gopher "github.com/knowfox/gopher"
	"github.com/stretchr/testify/require"
)

func TestParseMenuLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		typ      gopher.ItemType
		itemName string
		selector string
		host     string
		port     int
	}{
		{"well formed", "1Home\t/home\tgopher.example.com\t70", gopher.TypeMenu, "Home", "/home", "gopher.example.com", 70},
		{"gopher+ marker", "1Home\t/home\tgopher.example.com\t70\t+", gopher.TypeMenu, "Home", "/home", "gopher.example.com", 70},
		{"spaces in selector", "0One Two\t/One Two.txt\tgopher.example.com\t70\t+", gopher.TypeText, "One Two", "/One Two.txt", "gopher.example.com", 70},
		{"info", "iThis is info\tfake\t(NULL)\t0", gopher.TypeInfo, "This is info", "fake", "(NULL)", 0},
		{"empty info", "i\tfake\t(NULL)\t0", gopher.TypeInfo, "", "fake", "(NULL)", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := gopher.ParseMenuLine(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.typ, item.Type)
			require.Equal(t, tt.itemName, item.Name)
			require.Equal(t, tt.selector, item.Selector)
			require.Equal(t, tt.host, item.Hostname)
			require.Equal(t, tt.port, item.Port)
			require.Equal(t, tt.line, item.Original)
			require.Nil(t, item.Attributes)
		})
	}
}

func TestParseMenuLineDegraded(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		item, err := gopher.ParseMenuLine("0Only a name")
		var lerr *gopher.LineError
		require.ErrorAs(t, err, &lerr)
		require.Equal(t, "0Only a name", lerr.Text)
		require.Equal(t, gopher.TypeText, item.Type)
		require.Equal(t, "Only a name", item.Name)
		require.Equal(t, gopher.FakeSelector, item.Selector)
		require.Equal(t, "", item.Hostname)
		require.Equal(t, 0, item.Port)
	})

	t.Run("invalid port", func(t *testing.T) {
		item, err := gopher.ParseMenuLine("1Home\t/home\tgopher.example.com\tseventy")
		require.Error(t, err)
		require.Equal(t, "/home", item.Selector)
		require.Equal(t, "gopher.example.com", item.Hostname)
		require.Equal(t, 0, item.Port)
		require.False(t, item.Navigable())
	})

	t.Run("non-ASCII type", func(t *testing.T) {
		item, err := gopher.ParseMenuLine("éclair	/eclair.txt	gopher.example.com	70")
		var lerr *gopher.LineError
		require.ErrorAs(t, err, &lerr)
		require.Contains(t, lerr.Reason, "non-ASCII item type")
		require.Equal(t, gopher.TypeUnknown, item.Type)
		require.Equal(t, "clair", item.Name)
		require.True(t, utf8.ValidString(item.Name))
		require.Equal(t, "/eclair.txt", item.Selector)
		require.Equal(t, 70, item.Port)
	})

	t.Run("empty line", func(t *testing.T) {
		item, err := gopher.ParseMenuLine("")
		require.Error(t, err)
		require.Equal(t, gopher.TypeUnknown, item.Type)
		require.Equal(t, gopher.FakeSelector, item.Selector)
	})
}

func TestMenuItemString(t *testing.T) {
	item, err := gopher.ParseMenuLine("1Home\t/home\tgopher.example.com\t70")
	require.NoError(t, err)
	require.Equal(t, "1 Home gopher://gopher.example.com:70/home", item.String())

	info, err := gopher.ParseMenuLine("i\tfake\t(NULL)\t0")
	require.NoError(t, err)
	require.Equal(t, "i ", info.String())

	nullHost, err := gopher.ParseMenuLine("0Nowhere\t/x\t(NULL)\t70")
	require.NoError(t, err)
	require.Equal(t, "0 Nowhere", nullHost.String())
}

func TestMenuItemLineRoundTrip(t *testing.T) {
	line := "0A-Text_File!\t/A Text File.txt\tgopher.example.com\t70"
	item, err := gopher.ParseMenuLine(line)
	require.NoError(t, err)
	require.Equal(t, line, item.Line())
}

func TestMenuItemRequest(t *testing.T) {
	item, err := gopher.ParseMenuLine("7Search\t/search\tgopher.example.com\t7070")
	require.NoError(t, err)
	require.True(t, item.Navigable())

	req, err := item.Request()
	require.NoError(t, err)
	require.Equal(t, "gopher.example.com", req.Host)
	require.Equal(t, 7070, req.Port)
	require.Equal(t, "/search", req.Selector)

	info, err := gopher.ParseMenuLine("iJust text\tfake\t(NULL)\t0")
	require.NoError(t, err)
	_, err = info.Request()
	require.ErrorIs(t, err, gopher.ErrNotNavigable)
}

func TestItemTypeIsBinary(t *testing.T) {
	require.True(t, gopher.TypeBinary.IsBinary())
	require.True(t, gopher.TypeGIF.IsBinary())
	require.True(t, gopher.TypeImage.IsBinary())
	require.False(t, gopher.TypeText.IsBinary())
	require.False(t, gopher.TypeMenu.IsBinary())
	require.Equal(t, "7", gopher.TypeSearch.String())
}

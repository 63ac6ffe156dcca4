package gopher_test

import (
	"testing"

	gopher "github.com/knowfox/gopher"
	"github.com/stretchr/testify/require"
)

func TestParseMenu(t *testing.T) {
	menu := gopher.ParseMenu("1A Menu\t/A/Menu\tgopher.example.com\t70\r\n" +
		"0A-Text_File!\t/A Text File.txt\tgopher.example.com\t70\t+\r\n" +
		"IAn image\t/image.gif\tgopher.example.com\t70\r\n" +
		"iInformation\tfake\t(NULL)\t0\r\n" +
		"i\tfake\t(NULL)\t0\r\n")

	require.Len(t, menu.Items, 5)
	require.Empty(t, menu.Problems)

	require.Equal(t, gopher.TypeMenu, menu.Items[0].Type)
	require.Equal(t, "A Menu", menu.Items[0].Name)
	require.Equal(t, "/A/Menu", menu.Items[0].Selector)

	require.Equal(t, gopher.TypeText, menu.Items[1].Type)
	require.Equal(t, "/A Text File.txt", menu.Items[1].Selector)
	require.Equal(t, 70, menu.Items[1].Port)

	require.Equal(t, gopher.TypeImage, menu.Items[2].Type)
	require.Equal(t, "/image.gif", menu.Items[2].Selector)

	require.Equal(t, gopher.TypeInfo, menu.Items[3].Type)
	require.Equal(t, "Information", menu.Items[3].Name)
	require.Equal(t, gopher.NullHost, menu.Items[3].Hostname)

	require.Equal(t, gopher.TypeInfo, menu.Items[4].Type)
	require.Equal(t, "", menu.Items[4].Name)
	require.Equal(t, 0, menu.Items[4].Port)

	require.Len(t, menu.Links(), 3)
}

func TestParseMenuStopsAtLastLine(t *testing.T) {
	menu := gopher.ParseMenu("1Home\t/\texample.com\t70\r\n\r\n.\r\n0After\t/after\texample.com\t70\r\n")
	require.Len(t, menu.Items, 1)
	require.Equal(t, "Home", menu.Items[0].Name)
}

func TestParseMenuKeepsDegradedLines(t *testing.T) {
	menu := gopher.ParseMenu("1Home\t/\texample.com\t70\r\n" +
		"3broken line\r\n" +
		"0Text\t/t.txt\texample.com\tport\r\n")

	require.Len(t, menu.Items, 3)
	require.Len(t, menu.Problems, 2)
	require.Equal(t, 2, menu.Problems[0].Line)
	require.Equal(t, "3broken line", menu.Problems[0].Text)
	require.Equal(t, 3, menu.Problems[1].Line)
	require.Equal(t, gopher.TypeError, menu.Items[1].Type)
	require.Equal(t, "broken line", menu.Items[1].Name)
	require.Equal(t, 0, menu.Items[2].Port)
}

func TestMenuString(t *testing.T) {
	menu := gopher.ParseMenu("iHello\tfake\t(NULL)\t0\r\n1Home\t/\texample.com\t70\r\n")
	require.Equal(t, "i Hello\n1 Home gopher://example.com:70/\n", menu.String())
}

package history

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func item(date, rating string) string {
	return fmt.Sprintf(
		`<div class="historyItem__k1"><div class="historyItemDate__k2">%s</div><div class="historyItemRating__k3">%s</div></div>`,
		date, rating,
	)
}

func page(body string) string {
	return "<html><head><title>Jane Doe | UTR</title></head><body>" + body + "</body></html>"
}

func requireSamples(t *testing.T, expected, got []Sample) {
	t.Helper()
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Fatalf("samples mismatch (-expected +got):\n%s", diff)
	}
}

func TestExtractEndToEnd(t *testing.T) {
	doc := page(`<section class="ratingHistory__s"><h3>Full Rating History</h3><div class="list">` +
		item("2023-01-05", "11.20") +
		item("2023-03-10", "11.45") +
		item("2023-01-05", "11.20") +
		`</div></section>`)

	requireSamples(t, []Sample{
		{Date: "2023-01-05", Rating: "11.20"},
		{Date: "2023-03-10", Rating: "11.45"},
	}, Extract(doc))
}

func TestExtractDeduplicatesDistinctNodes(t *testing.T) {
	doc := page(`<h3>Full Rating History</h3>` +
		item("2023-01-05", "11.20") +
		`<div class="historyItem__other"><span>2023-01-05</span><span>11.20</span></div>`)

	requireSamples(t, []Sample{{Date: "2023-01-05", Rating: "11.20"}}, Extract(doc))
}

func TestExtractPreservesDocumentOrder(t *testing.T) {
	// not chronological, extraction must not sort
	dates := []string{"2023-06-01", "2021-02-14", "2022-11-30", "5/6/22", "2020-01-01", "12/31/2019", "2023-06-02"}

	var b strings.Builder
	var expected []Sample
	for i, date := range dates {
		rating := fmt.Sprintf("10.%d", i)
		b.WriteString(item(date, rating))
		expected = append(expected, Sample{Date: date, Rating: rating})
	}

	got := Extract(page(`<h2>Full Ratings History</h2><div>` + b.String() + `</div>`))
	require.Len(t, got, 7)
	requireSamples(t, expected, got)
}

func TestExtractEmpty(t *testing.T) {
	table := []struct {
		name   string
		markup string
	}{
		{name: "empty document", markup: ""},
		{name: "whitespace", markup: "  \n "},
		{name: "no header no markers", markup: page(`<div class="card"><span>2023-01-05</span> <span>11.20</span></div>`)},
		{name: "header without items", markup: page(`<div><h3>Full Rating History</h3><p>Nothing yet</p></div>`)},
		{name: "garbage", markup: `<<<div class="historyItem__"><</div`},
	}

	for _, row := range table {
		require.Empty(t, Extract(row.markup), row.name)
	}
}

func TestExtractRatingNormalization(t *testing.T) {
	doc := page(`<h3>Full Rating History</h3>` +
		item("2023-01-05", "UTR: 11.87pts") +
		item("2023-02-05", "N/A"))

	requireSamples(t, []Sample{{Date: "2023-01-05", Rating: "11.87"}}, Extract(doc))
}

func TestExtractDropsItemWithoutDate(t *testing.T) {
	doc := page(`<h3>Full Rating History</h3>` +
		`<div class="historyItem__a"><div class="historyItemRating__b">12.01</div><span>yesterday</span></div>`)

	require.Empty(t, Extract(doc))
}

func TestExtractBroadScanFillsMissingFields(t *testing.T) {
	doc := page(`<h3>Full Rating History</h3>` +
		`<div class="historyItem__a"><div class="historyItemDate__b">Mar 4</div><div><span>3/4/2023</span> <span>10.5</span></div></div>` +
		`<div class="historyItem__a"><div class="historyItemDate__b">1/15/24</div><span>rating 9.87</span></div>`)

	requireSamples(t, []Sample{
		{Date: "Mar 4", Rating: "10.5"},
		{Date: "1/15/24", Rating: "9.87"},
	}, Extract(doc))
}

func TestExtractFallsBackToDateMarker(t *testing.T) {
	doc := page(`<div class="wrap">` +
		`<div class="row"><div class="historyItemDate__z">3/4/23</div><div class="historyItemRating__z">10.5</div></div>` +
		`<div class="row"><div class="historyItemDate__z">4/4/23</div><div class="historyItemRating__z">10.61</div></div>` +
		`</div>`)

	requireSamples(t, []Sample{
		{Date: "3/4/23", Rating: "10.5"},
		{Date: "4/4/23", Rating: "10.61"},
	}, Extract(doc))
}

func TestExtractScopesToHeaderSection(t *testing.T) {
	doc := page(`<div id="singles">` + item("2022-12-01", "9.99") + `</div>` +
		`<section><h2>  full rating history </h2>` + item("2023-05-01", "10.01") + `</section>`)

	requireSamples(t, []Sample{{Date: "2023-05-01", Rating: "10.01"}}, Extract(doc))
}

func TestExtractClimbExhaustedUsesDocument(t *testing.T) {
	doc := page(item("2023-05-01", "10.01") +
		`<div><div><div><div><div><h2>Full Rating History</h2></div></div></div></div></div>`)

	requireSamples(t, []Sample{{Date: "2023-05-01", Rating: "10.01"}}, Extract(doc))
}

func TestPlayerName(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "John Smith | Player Profile", expected: "John Smith"},
		{input: "", expected: ""},
		{input: "  Solo  ", expected: "Solo"},
		{input: "A | B | C", expected: "A"},
		{input: "| Player Profile", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, PlayerName(row.input))
	}
}

func TestTitleFromMarkup(t *testing.T) {
	require.Equal(t, "Jane Doe | UTR", TitleFromMarkup(page("")))
	require.Equal(t, "", TitleFromMarkup("<div>no title</div>"))
}

package history

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlayerName derives the display name from a page title of the form
// "<name> | <site section>".
func PlayerName(title string) string {
	name, _, _ := strings.Cut(title, "|")
	return strings.TrimSpace(name)
}

// TitleFromMarkup returns the text of the first <title> in markup, used
// when the document was captured outside of a browser.
func TitleFromMarkup(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	return doc.Find("title").First().Text()
}

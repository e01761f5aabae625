// history.go turns a rendered profile page into the rating history shown in
// its "Full Rating History" section. It does not touch the network.

package history

import (
	"regexp"
	"strings"
	"utrhistory/pkg/htmlutil"
)

// HeaderVariants are the section titles the profile page has been seen
// rendering above the history list.
var HeaderVariants = []string{"Full Rating History", "Full Ratings History"}

const (
	itemMarker   = "historyItem__"
	dateMarker   = "historyItemDate__"
	ratingMarker = "historyItemRating__"

	// maximum number of ancestors tried above the header when looking
	// for the list container
	maxClimb = 4
)

// Sample is one entry of the history. Both fields are kept exactly as
// displayed, the page mixes date formats.
type Sample struct {
	Date   string
	Rating string
}

var (
	datePattern      = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)
	ratingPattern    = regexp.MustCompile(`\b(\d{1,2}\.\d{1,2})\b`)
	ratingNormalizer = regexp.MustCompile(`\d{1,2}\.\d{1,2}`)
)

var (
	isItem       = htmlutil.And(htmlutil.Tag("div"), htmlutil.ClassContains(itemMarker))
	isDateField  = htmlutil.And(htmlutil.Tag("div"), htmlutil.ClassContains(dateMarker))
	isRatingCell = htmlutil.And(htmlutil.Tag("div"), htmlutil.ClassContains(ratingMarker))
	hasDateField = htmlutil.And(htmlutil.Tag("div"), htmlutil.Has(isDateField))
	isScanned    = htmlutil.Or(htmlutil.Tag("div"), htmlutil.Tag("span"))
)

// Extract returns the history samples found in markup in document order,
// without duplicates. Malformed markup yields fewer (or no) samples, never
// an error.
func Extract(markup string) []Sample {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	return ExtractNode(htmlutil.Parse(markup))
}

// ExtractNode is Extract over an already parsed document.
func ExtractNode(root *htmlutil.Node) []Sample {
	container := findContainer(root)

	items := container.FindAll(isItem)
	if len(items) == 0 {
		items = container.FindAll(hasDateField)
	}

	var samples []Sample
	for _, item := range items {
		s, ok := parseItem(item)
		if ok {
			samples = append(samples, s)
		}
	}
	return dedupe(samples)
}

func isHeaderText(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	for _, h := range HeaderVariants {
		if text == strings.ToLower(h) {
			return true
		}
	}
	return false
}

// findContainer scopes the item search to the closest ancestor of the
// section header that holds history items, or the whole document.
func findContainer(root *htmlutil.Node) *htmlutil.Node {
	header := root.FindFirst(htmlutil.TextMatches(isHeaderText))
	if header == nil {
		return root
	}

	current := header.ParentElement()
	for i := 0; i < maxClimb && current != nil; i++ {
		if current.Contains(isItem) || current.Contains(hasDateField) {
			return current
		}
		current = current.ParentElement()
	}
	return root
}

func parseItem(item *htmlutil.Node) (Sample, bool) {
	var s Sample
	if el := item.FindFirst(isDateField); el != nil {
		s.Date = el.StrippedText("")
	}
	if el := item.FindFirst(isRatingCell); el != nil {
		s.Rating = el.StrippedText("")
	}

	if s.Date == "" || s.Rating == "" {
		var parts []string
		for _, n := range item.FindAll(isScanned) {
			parts = append(parts, n.StrippedText(" "))
		}
		text := strings.Join(parts, " ")

		if m := datePattern.FindStringSubmatch(text); m != nil && s.Date == "" {
			s.Date = m[1]
		}
		if m := ratingPattern.FindStringSubmatch(text); m != nil && s.Rating == "" {
			s.Rating = m[1]
		}
	}

	if s.Rating != "" {
		s.Rating = ratingNormalizer.FindString(s.Rating)
	}

	return s, s.Date != "" && s.Rating != ""
}

func dedupe(samples []Sample) []Sample {
	seen := make(map[Sample]struct{}, len(samples))
	var out []Sample
	for _, s := range samples {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

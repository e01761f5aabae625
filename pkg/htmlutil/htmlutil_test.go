package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixture = `<html><body>
<div id="list" class="card list__x1">
	<div class="historyItem__abc row">
		<div class="historyItemDate__d1"> 2023-01-05 </div>
		<span>  11.20 </span>
	</div>
	<p class="note">text <b>bold</b></p>
</div>
<!-- a comment -->
</body></html>`

func TestParseDropsComments(t *testing.T) {
	root := Parse(fixture)
	found := root.FindFirst(TextMatches(func(text string) bool {
		return strings.Contains(text, "a comment")
	}))
	require.Nil(t, found)
}

func TestPredicates(t *testing.T) {
	root := Parse(fixture)

	table := []struct {
		name     string
		pred     Predicate
		expected int
	}{
		{name: "tag div", pred: Tag("DIV"), expected: 3},
		{name: "class contains", pred: ClassContains("historyItem__"), expected: 1},
		{name: "class contains matches any token", pred: ClassContains("list__"), expected: 1},
		{name: "class contains does not cross tokens", pred: ClassContains("card list"), expected: 0},
		{
			name:     "has descendant",
			pred:     And(Tag("div"), Has(ClassContains("historyItemDate__"))),
			expected: 2,
		},
		{name: "or", pred: Or(Tag("p"), Tag("span")), expected: 2},
		{name: "nothing", pred: ClassContains("missing"), expected: 0},
	}

	for _, row := range table {
		require.Len(t, root.FindAll(row.pred), row.expected, row.name)
	}
}

func TestFindAllIsDocumentOrder(t *testing.T) {
	root := Parse(`<div><i>1</i><div><i>2</i></div><i>3</i></div>`)
	var texts []string
	for _, n := range root.FindAll(Tag("i")) {
		texts = append(texts, n.TextContent())
	}
	require.Equal(t, []string{"1", "2", "3"}, texts)
}

func TestText(t *testing.T) {
	root := Parse(fixture)
	note := root.FindFirst(ClassContains("note"))
	require.NotNil(t, note)

	require.Equal(t, "text bold", note.TextContent())
	require.Equal(t, "textbold", note.StrippedText(""))
	require.Equal(t, "text bold", note.StrippedText(" "))

	item := root.FindFirst(ClassContains("historyItem__"))
	require.Equal(t, "2023-01-05 11.20", item.StrippedText(" "))
}

func TestParentElement(t *testing.T) {
	root := Parse(`<section><h2>Title</h2></section>`)
	text := root.FindFirst(TextMatches(func(s string) bool { return s == "Title" }))
	require.NotNil(t, text)

	parent := text.ParentElement()
	require.Equal(t, "h2", parent.Tag)
	require.Equal(t, "section", parent.ParentElement().Tag)
}

func TestParseEmpty(t *testing.T) {
	root := Parse("")
	require.NotNil(t, root)
	require.Empty(t, root.FindAll(Tag("div")))
}

package dashboard

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/socaudit/internal/model"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// headingLevel returns 1-3 for h1-h3 and 0 otherwise.
func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	default:
		return 0
	}
}

// ExtractTOC lists the h1-h3 headings of a rendered report in document order.
// Headings without an id get one derived from their text.
func ExtractTOC(doc string) []model.TOCEntry {
	toc := []model.TOCEntry{}

	z := html.NewTokenizer(strings.NewReader(doc))

	var (
		current *model.TOCEntry
		text    strings.Builder
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way the list is complete
			return toc

		case html.StartTagToken:
			tok := z.Token()
			level := headingLevel(tok.DataAtom)
			if level == 0 || current != nil {
				continue
			}
			current = &model.TOCEntry{Level: level}
			for _, attr := range tok.Attr {
				if attr.Key == "id" {
					current.ID = attr.Val
				}
			}
			text.Reset()

		case html.TextToken:
			if current != nil {
				text.Write(z.Text())
			}

		case html.EndTagToken:
			if current == nil {
				continue
			}
			name, _ := z.TagName()
			if headingLevel(atom.Lookup(name)) != current.Level {
				continue
			}
			current.Text = strings.Join(strings.Fields(text.String()), " ")
			if current.ID == "" {
				current.ID = slug(current.Text)
			}
			if current.Text != "" {
				toc = append(toc, *current)
			}
			current = nil
		}
	}
}

// slug lower-cases s and joins its alphanumeric runs with dashes.
func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

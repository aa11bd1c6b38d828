package extract

import "github.com/PuerkitoBio/goquery"

// Resolver is one step of a value-resolution chain. Resolve inspects the field's
// container (a list item, or the subtitle's parent for tables) and the subtitle that
// supplied the key. ok reports that the step claimed the field; the chain stops there.
type Resolver struct {
	Name    string
	Resolve func(container, subtitle *goquery.Selection) (value string, ok bool)
}

// resolve walks the chain in order and returns the first claimed value and the name
// of the step that produced it.
func resolve(chain []Resolver, container, subtitle *goquery.Selection) (string, string, bool) {
	for _, step := range chain {
		if value, ok := step.Resolve(container, subtitle); ok {
			return value, step.Name, true
		}
	}
	return "", "", false
}

// firstNonEmpty claims the field when the first match of sel has text.
func firstNonEmpty(sel string, exclude string) func(container, _ *goquery.Selection) (string, bool) {
	return func(container, _ *goquery.Selection) (string, bool) {
		found := container.Find(sel)
		if exclude != "" {
			found = found.Not(exclude)
		}
		value := text(found.First())
		return value, value != ""
	}
}

// ListResolvers is the priority order for list fields: a link, then a paragraph that is
// not the subtitle, then a paragraph wrapped one level deeper in a div.
func ListResolvers(s Selectors) []Resolver {
	return []Resolver{
		{Name: "link", Resolve: firstNonEmpty(s.Link, "")},
		{Name: "sibling-paragraph", Resolve: firstNonEmpty(s.Paragraph, s.Subtitle)},
		{Name: "wrapped-paragraph", Resolve: firstNonEmpty(s.WrappedParagraph, "")},
	}
}

// TableResolvers is the priority order for table fields. A paragraph directly after
// the subtitle claims the field even when it is blank; otherwise the first non-subtitle
// paragraph under the same parent is used.
func TableResolvers(s Selectors) []Resolver {
	return []Resolver{
		{
			Name: "next-paragraph",
			Resolve: func(_, subtitle *goquery.Selection) (string, bool) {
				next := subtitle.Next()
				if next.Length() == 0 || !next.Is(s.Paragraph) {
					return "", false
				}
				return text(next), true
			},
		},
		{
			Name: "parent-paragraph",
			Resolve: func(_, subtitle *goquery.Selection) (string, bool) {
				found := subtitle.Parent().Find(s.Paragraph).Not(s.Subtitle).First()
				if found.Length() == 0 {
					return "", false
				}
				return text(found), true
			},
		},
	}
}

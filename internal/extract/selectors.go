package extract

import (
	"fmt"
	"strings"
)

// Selectors names every CSS selector and placeholder the strategies depend on.
type Selectors struct {
	ListSection       string `mapstructure:"list_section"`
	ListTitle         string `mapstructure:"list_title"`
	ListItem          string `mapstructure:"list_item"`
	Subtitle          string `mapstructure:"subtitle"`
	Link              string `mapstructure:"link"`
	Paragraph         string `mapstructure:"paragraph"`
	WrappedParagraph  string `mapstructure:"wrapped_paragraph"`
	TableSection      string `mapstructure:"table_section"`
	TableTitle        string `mapstructure:"table_title"`
	TableData         string `mapstructure:"table_data"`
	DefaultListTitle  string `mapstructure:"default_list_title"`
	DefaultTableTitle string `mapstructure:"default_table_title"`
	MissingValue      string `mapstructure:"missing_value"`
}

// DefaultSelectors matches the commercial-data markup of the product portal.
func DefaultSelectors() Selectors {
	return Selectors{
		ListSection:       ".commercial-data-section",
		ListTitle:         ".commercial-data-section__title",
		ListItem:          "ul li",
		Subtitle:          ".commercial-data-section__subtitle",
		Link:              "a",
		Paragraph:         "p",
		WrappedParagraph:  "div > p",
		TableSection:      ".commercial-data-table-section",
		TableTitle:        ".commercial-data-table-section__title",
		TableData:         ".commercial-data-table-section-data",
		DefaultListTitle:  "General",
		DefaultTableTitle: "Table Data",
		MissingValue:      "–",
	}
}

// WithDefaults fills blank selectors from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	def := DefaultSelectors()
	fill := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	fill(&s.ListSection, def.ListSection)
	fill(&s.ListTitle, def.ListTitle)
	fill(&s.ListItem, def.ListItem)
	fill(&s.Subtitle, def.Subtitle)
	fill(&s.Link, def.Link)
	fill(&s.Paragraph, def.Paragraph)
	fill(&s.WrappedParagraph, def.WrappedParagraph)
	fill(&s.TableSection, def.TableSection)
	fill(&s.TableTitle, def.TableTitle)
	fill(&s.TableData, def.TableData)
	fill(&s.DefaultListTitle, def.DefaultListTitle)
	fill(&s.DefaultTableTitle, def.DefaultTableTitle)
	fill(&s.MissingValue, def.MissingValue)
	return s
}

// Validate rejects selectors cascadia cannot compile.
func (s Selectors) Validate() error {
	for name, sel := range map[string]string{
		"list_section":      s.ListSection,
		"list_title":        s.ListTitle,
		"list_item":         s.ListItem,
		"subtitle":          s.Subtitle,
		"link":              s.Link,
		"paragraph":         s.Paragraph,
		"wrapped_paragraph": s.WrappedParagraph,
		"table_section":     s.TableSection,
		"table_title":       s.TableTitle,
		"table_data":        s.TableData,
	} {
		if err := compile(sel); err != nil {
			return fmt.Errorf("selectors.%s: %w", name, err)
		}
	}
	return nil
}

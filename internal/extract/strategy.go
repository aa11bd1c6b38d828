package extract

import (
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

// Strategy maps one markup layout to sections. Implementations register every section
// title they encounter, even when no field resolves, so pruning stays the merger's job.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document) product.Sections
}

// ListStrategy reads the generic list layout: titled sections whose list items hold a
// subtitle key and a value in a link or paragraph.
type ListStrategy struct {
	sel      Selectors
	resolver []Resolver
	logger   *zap.Logger
}

// NewListStrategy builds the list-layout strategy.
func NewListStrategy(sel Selectors, logger *zap.Logger) *ListStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListStrategy{sel: sel, resolver: ListResolvers(sel), logger: logger}
}

// Name implements Strategy.
func (*ListStrategy) Name() string { return "list" }

// Extract implements Strategy.
func (s *ListStrategy) Extract(doc *goquery.Document) product.Sections {
	out := product.Sections{}
	doc.Find(s.sel.ListSection).Each(func(_ int, section *goquery.Selection) {
		title := titleOf(section, s.sel.ListTitle, s.sel.DefaultListTitle)
		fields := out.Ensure(title)

		section.Find(s.sel.ListItem).Each(func(_ int, item *goquery.Selection) {
			subtitle := item.Find(s.sel.Subtitle).First()
			if subtitle.Length() == 0 {
				return
			}
			key := text(subtitle)
			if key == "" {
				return
			}
			value, step, ok := resolve(s.resolver, item, subtitle)
			if !ok {
				s.logger.Debug("skipping field",
					zap.String("section", title),
					zap.String("field", key),
					zap.Error(product.ErrFieldResolutionMiss),
				)
				return
			}
			s.logger.Debug("field resolved",
				zap.String("section", title),
				zap.String("field", key),
				zap.String("resolver", step),
			)
			fields[key] = value
		})
	})
	return out
}

// TableStrategy reads the tabular layout used for pricing and classification data.
// Every subtitle in the section's data container becomes a field; values that cannot
// be resolved are recorded as Selectors.MissingValue instead of being dropped.
type TableStrategy struct {
	sel      Selectors
	resolver []Resolver
	logger   *zap.Logger
}

// NewTableStrategy builds the table-layout strategy.
func NewTableStrategy(sel Selectors, logger *zap.Logger) *TableStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableStrategy{sel: sel, resolver: TableResolvers(sel), logger: logger}
}

// Name implements Strategy.
func (*TableStrategy) Name() string { return "table" }

// Extract implements Strategy.
func (s *TableStrategy) Extract(doc *goquery.Document) product.Sections {
	out := product.Sections{}
	doc.Find(s.sel.TableSection).Each(func(_ int, section *goquery.Selection) {
		title := titleOf(section, s.sel.TableTitle, s.sel.DefaultTableTitle)
		fields := out.Ensure(title)

		container := section.Find(s.sel.TableData).First()
		if container.Length() == 0 {
			return
		}
		container.Find(s.sel.Subtitle).Each(func(_ int, subtitle *goquery.Selection) {
			key := text(subtitle)
			if key == "" {
				return
			}
			value, _, _ := resolve(s.resolver, subtitle.Parent(), subtitle)
			if value == "" {
				value = s.sel.MissingValue
			}
			fields[key] = value
		})
	})
	return out
}

package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

// Config controls the extractor.
type Config struct {
	Selectors   Selectors
	MergePolicy product.MergePolicy
}

// Extractor runs every strategy over a snapshot and merges the results.
type Extractor struct {
	strategies []Strategy
	policy     product.MergePolicy
	logger     *zap.Logger
}

// New builds an Extractor with the list strategy followed by the table strategy.
// With last-write-wins, table values therefore win on colliding keys.
func New(cfg Config, logger *zap.Logger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sel := cfg.Selectors.WithDefaults()
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	policy := cfg.MergePolicy
	if policy == "" {
		policy = product.MergeLastWriteWins
	}
	return NewWithStrategies(policy, logger, NewListStrategy(sel, logger), NewTableStrategy(sel, logger)), nil
}

// NewWithStrategies builds an Extractor from explicit strategies, applied in order.
func NewWithStrategies(policy product.MergePolicy, logger *zap.Logger, strategies ...Strategy) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{strategies: strategies, policy: policy, logger: logger}
}

// Extract parses an HTML snapshot and returns the pruned, merged sections.
func (e *Extractor) Extract(html string) (product.Sections, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return e.ExtractDocument(doc), nil
}

// ExtractDocument runs the strategies over an already parsed document.
func (e *Extractor) ExtractDocument(doc *goquery.Document) product.Sections {
	merged := product.Sections{}
	for _, strategy := range e.strategies {
		found := strategy.Extract(doc)
		e.logger.Debug("strategy finished",
			zap.String("strategy", strategy.Name()),
			zap.Int("sections", len(found)),
			zap.Int("fields", found.FieldCount()),
		)
		merged.Merge(found, e.policy)
	}
	return merged.Prune()
}

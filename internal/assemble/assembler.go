// Package assemble turns extracted sections into the immutable scrape result.
package assemble

import (
	"github.com/JakeFAU/product-spec-scraper/internal/product"
)

// Config names where the primary identifier lives and what to use when it does not.
// The default lookup path is specific to the product portal; other sources replace
// Section and Field but keep the fallback contract.
type Config struct {
	Section  string `mapstructure:"section"`
	Field    string `mapstructure:"field"`
	Fallback string `mapstructure:"fallback"`
}

// DefaultConfig reads "Article number" from the "Product related" section.
func DefaultConfig() Config {
	return Config{
		Section:  "Product related",
		Field:    "Article number",
		Fallback: "unknown",
	}
}

// Assembler builds results. It never fails.
type Assembler struct {
	cfg   Config
	clock product.Clock
}

// New creates an Assembler. Blank config values take their defaults.
func New(cfg Config, clock product.Clock) *Assembler {
	def := DefaultConfig()
	if cfg.Section == "" {
		cfg.Section = def.Section
	}
	if cfg.Field == "" {
		cfg.Field = def.Field
	}
	if cfg.Fallback == "" {
		cfg.Fallback = def.Fallback
	}
	return &Assembler{cfg: cfg, clock: clock}
}

// Assemble timestamps the sections and derives the identifier and counts.
func (a *Assembler) Assemble(sourceURL string, sections product.Sections) product.Result {
	return product.NewResult(sourceURL, sections, a.Identifier(sections), a.clock.Now())
}

// Identifier looks up the configured field, falling back when the section, the field,
// or its value is missing.
func (a *Assembler) Identifier(sections product.Sections) string {
	if value := sections[a.cfg.Section][a.cfg.Field]; value != "" {
		return value
	}
	return a.cfg.Fallback
}

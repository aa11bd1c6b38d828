package product

import (
	"fmt"
	"strings"
	"time"
)

// Fields maps a field key to its value inside one section.
type Fields map[string]string

// Sections maps a section title to its fields.
type Sections map[string]Fields

// MergePolicy decides which value survives when two sources write the same field key
// into the same section.
type MergePolicy string

// Supported merge policies.
const (
	MergeLastWriteWins  MergePolicy = "last_write_wins"
	MergeFirstWriteWins MergePolicy = "first_write_wins"
)

// ParseMergePolicy validates a configured policy name. Empty means last-write-wins.
func ParseMergePolicy(raw string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MergeLastWriteWins:
		return MergeLastWriteWins, nil
	case MergeFirstWriteWins:
		return MergeFirstWriteWins, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q", raw)
	}
}

// Ensure registers a section title without fields and returns its field map.
func (s Sections) Ensure(title string) Fields {
	fields, ok := s[title]
	if !ok {
		fields = Fields{}
		s[title] = fields
	}
	return fields
}

// Merge folds other into s. Titles are unioned; colliding keys follow policy.
func (s Sections) Merge(other Sections, policy MergePolicy) {
	for title, fields := range other {
		dst := s.Ensure(title)
		for key, value := range fields {
			if _, exists := dst[key]; exists && policy == MergeFirstWriteWins {
				continue
			}
			dst[key] = value
		}
	}
}

// Prune returns a deep copy of s without sections that carry no fields.
func (s Sections) Prune() Sections {
	out := make(Sections, len(s))
	for title, fields := range s {
		if len(fields) == 0 {
			continue
		}
		out[title] = fields.clone()
	}
	return out
}

// FieldCount returns the total number of fields across all sections.
func (s Sections) FieldCount() int {
	total := 0
	for _, fields := range s {
		total += len(fields)
	}
	return total
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Result is the outcome of one scrape. It is built once by the assembler and never
// mutated afterwards; accessors hand out copies.
type Result struct {
	sourceURL         string
	sections          Sections
	primaryIdentifier string
	scrapedAt         time.Time
}

// NewResult builds a Result from a raw section map. Empty sections are dropped and the
// map is copied so later writes by the caller cannot leak in.
func NewResult(sourceURL string, sections Sections, identifier string, scrapedAt time.Time) Result {
	return Result{
		sourceURL:         sourceURL,
		sections:          sections.Prune(),
		primaryIdentifier: identifier,
		scrapedAt:         scrapedAt.UTC(),
	}
}

// SourceURL returns the scraped page URL.
func (r Result) SourceURL() string { return r.sourceURL }

// Sections returns a copy of the extracted sections.
func (r Result) Sections() Sections { return r.sections.Prune() }

// PrimaryIdentifier returns the derived identifier, or the configured fallback.
func (r Result) PrimaryIdentifier() string { return r.primaryIdentifier }

// ScrapedAt returns the UTC time the result was assembled.
func (r Result) ScrapedAt() time.Time { return r.scrapedAt }

// SectionCount is the number of non-empty sections.
func (r Result) SectionCount() int { return len(r.sections) }

// HasData reports whether at least one section survived pruning.
func (r Result) HasData() bool { return r.SectionCount() > 0 }

// TimestampLayout renders scrapedAt with a fixed three-digit millisecond field.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is the JSON document persisted for a scrape.
type Record struct {
	URL            string   `json:"url"`
	ArticleNumber  string   `json:"articleNumber"`
	ScrapedAt      string   `json:"scrapedAt"`
	Specifications Sections `json:"specifications"`
	SectionsFound  int      `json:"sectionsFound"`
	DataFound      bool     `json:"dataFound"`
}

// Record shapes the result into its output document.
func (r Result) Record() Record {
	return Record{
		URL:            r.sourceURL,
		ArticleNumber:  r.primaryIdentifier,
		ScrapedAt:      r.scrapedAt.Format(TimestampLayout),
		Specifications: r.Sections(),
		SectionsFound:  r.SectionCount(),
		DataFound:      r.HasData(),
	}
}

// Package extract turns a rendered DOM snapshot into specification sections.
//
// Two independent strategies walk the same document. ListStrategy reads the generic
// list layout; TableStrategy reads the tabular pricing/classification layout. Their
// outputs are merged by title and empty sections are pruned. Every class and tag name
// the strategies match on comes from Selectors, so markup drift is a config change.
package extract

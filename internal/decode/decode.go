// Package decode reads the product payload that some portals embed as an HTML-escaped
// JSON attribute, without a browser.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Markers delimiting the embedded payload.
const (
	StartMarker = `plain-all-data="`
	EndMarker   = `" plain-product-id=`
)

var (
	// ErrStartMarkerMissing means the payload attribute does not occur in the input.
	ErrStartMarkerMissing = errors.New("plain-all-data attribute not found")
	// ErrEndMarkerMissing means the attribute was found but never terminated.
	ErrEndMarkerMissing = errors.New("end marker for plain-all-data not found")
)

var quoteUnescaper = strings.NewReplacer("&quot;", `"`, "&#34;", `"`)

// Result is the decoded payload.
type Result struct {
	Identifier     string
	Specifications json.RawMessage
}

type payload struct {
	ProductID      json.RawMessage `json:"productId"`
	ProductCR      json.RawMessage `json:"productCR"`
	Specifications json.RawMessage `json:"specifications"`
}

// File reads path and decodes it.
func File(path string) (Result, error) {
	// #nosec G304 -- the path is an operator-supplied CLI argument.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Payload(string(raw))
}

// Payload locates the attribute between StartMarker and EndMarker, unescapes quote
// entities and parses the JSON. The identifier is productId, then productCR, then
// "unknown".
func Payload(raw string) (Result, error) {
	start := strings.Index(raw, StartMarker)
	if start == -1 {
		return Result{}, ErrStartMarkerMissing
	}
	body := raw[start+len(StartMarker):]
	end := strings.Index(body, EndMarker)
	if end == -1 {
		return Result{}, ErrEndMarkerMissing
	}

	var p payload
	if err := json.Unmarshal([]byte(quoteUnescaper.Replace(body[:end])), &p); err != nil {
		return Result{}, fmt.Errorf("parse payload json: %w", err)
	}

	specs := p.Specifications
	if len(specs) == 0 {
		specs = json.RawMessage("null")
	}
	return Result{
		Identifier:     firstIdentifier(p.ProductID, p.ProductCR),
		Specifications: specs,
	}, nil
}

// firstIdentifier returns the first candidate that is present and not empty. Numbers
// are kept in their JSON text form.
func firstIdentifier(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		if len(c) == 0 || string(c) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		return string(c)
	}
	return "unknown"
}

package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Normalize collapses every whitespace run (newlines included) into one space and trims
// the ends. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func text(sel *goquery.Selection) string {
	return Normalize(sel.Text())
}

func titleOf(section *goquery.Selection, titleSel, fallback string) string {
	if title := text(section.Find(titleSel).First()); title != "" {
		return title
	}
	return fallback
}

func compile(sel string) error {
	_, err := cascadia.Compile(sel)
	return err
}

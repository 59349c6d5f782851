package parse

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryKeywords maps one receipt category to the words that identify it.
type CategoryKeywords struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// KeywordTable is the receipt classifier's configuration. Categories are
// checked in order; the first one with a matching keyword wins.
type KeywordTable struct {
	Categories      []CategoryKeywords `yaml:"categories"`
	Markers         []string           `yaml:"markers"`
	DefaultCategory string             `yaml:"default_category"`
}

// DefaultKeywordTable returns a fresh copy of the built-in table.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		Categories: []CategoryKeywords{
			{Category: "food", Keywords: []string{
				"restaurant", "cafe", "hotel", "food", "supermarket", "grocery", "bakery",
				"pizza", "kfc", "java", "lunch", "dinner", "breakfast", "butchery",
			}},
			{Category: "transport", Keywords: []string{
				"uber", "bolt", "taxi", "fuel", "petrol", "diesel", "matatu", "bus", "fare",
				"parking", "shell", "rubis",
			}},
			{Category: "utilities", Keywords: []string{
				"kplc", "electricity", "water", "internet", "wifi", "airtime", "safaricom",
				"zuku", "bill", "tokens",
			}},
			{Category: "shopping", Keywords: []string{
				"mall", "store", "shop", "clothing", "fashion", "electronics", "hardware",
				"naivas", "carrefour", "quickmart",
			}},
			{Category: "entertainment", Keywords: []string{
				"cinema", "movie", "netflix", "showmax", "concert", "club", "game", "tickets",
			}},
		},
		Markers:         []string{"tel:", "date:", "time:", "receipt", "invoice"},
		DefaultCategory: "shopping",
	}
}

// LoadKeywordTable reads a YAML keyword table. Missing markers or default
// category fall back to the built-in values.
func LoadKeywordTable(path string) (KeywordTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeywordTable{}, fmt.Errorf("read keyword table: %w", err)
	}
	return DecodeKeywordTable(raw)
}

func DecodeKeywordTable(raw []byte) (KeywordTable, error) {
	var t KeywordTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return KeywordTable{}, fmt.Errorf("decode keyword table: %w", err)
	}
	def := DefaultKeywordTable()
	if len(t.Markers) == 0 {
		t.Markers = def.Markers
	}
	if strings.TrimSpace(t.DefaultCategory) == "" {
		t.DefaultCategory = def.DefaultCategory
	}
	if err := t.Validate(); err != nil {
		return KeywordTable{}, err
	}
	return t.normalized(), nil
}

func (t KeywordTable) Validate() error {
	var errs []string
	if len(t.Categories) == 0 {
		errs = append(errs, "at least one category is required")
	}
	for i, c := range t.Categories {
		if strings.TrimSpace(c.Category) == "" {
			errs = append(errs, fmt.Sprintf("category %d has no name", i))
		}
		if len(c.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("category %q has no keywords", c.Category))
		}
	}
	if strings.TrimSpace(t.DefaultCategory) == "" {
		errs = append(errs, "default_category is required")
	}
	if len(errs) > 0 {
		return errors.New("invalid keyword table:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// normalized lower-cases keywords and markers and returns a copy that shares
// no slices with t.
func (t KeywordTable) normalized() KeywordTable {
	out := KeywordTable{
		Categories:      make([]CategoryKeywords, 0, len(t.Categories)),
		Markers:         lowerAll(t.Markers),
		DefaultCategory: strings.TrimSpace(t.DefaultCategory),
	}
	for _, c := range t.Categories {
		out.Categories = append(out.Categories, CategoryKeywords{
			Category: strings.TrimSpace(c.Category),
			Keywords: lowerAll(c.Keywords),
		})
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (t KeywordTable) isMarker(lowerLine string) bool {
	for _, m := range t.Markers {
		if strings.Contains(lowerLine, m) {
			return true
		}
	}
	return false
}

func (t KeywordTable) classify(lowerLine string) (string, bool) {
	for _, c := range t.Categories {
		for _, kw := range c.Keywords {
			if strings.Contains(lowerLine, kw) {
				return c.Category, true
			}
		}
	}
	return "", false
}

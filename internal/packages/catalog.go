// Package packages holds the static seating catalog: three zones with a fixed
// per-table price. It is compiled into every binary and never persisted.
package packages

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Code identifies a seating package
type Code string

const (
	Base    Code = "base"
	Premium Code = "premium"
	Elite   Code = "elite"
)

// Order is the fixed order used for display and for automatic reassignment
var Order = []Code{Base, Premium, Elite}

// Valid reports whether c is one of the known codes
func (c Code) Valid() bool {
	switch c {
	case Base, Premium, Elite:
		return true
	}
	return false
}

func (c Code) String() string { return string(c) }

// ParseCode converts a raw string into a Code
func ParseCode(s string) (Code, error) {
	c := Code(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackage, s)
	}
	return c, nil
}

// Entry is one catalog line
type Entry struct {
	Code          Code     `yaml:"code" json:"code"`
	Label         string   `yaml:"label" json:"label"`
	PricePerTable float64  `yaml:"price" json:"price"`
	Area          string   `yaml:"area" json:"area"`
	Color         string   `yaml:"color" json:"color"`
	Bottles       []string `yaml:"bottles" json:"bottles"`
}

// Catalog is the parsed package list
type Catalog struct {
	PeoplePerTable int     `yaml:"people_per_table" json:"people_per_table"`
	DefaultCode    Code    `yaml:"default" json:"default"`
	Entries        []Entry `yaml:"packages" json:"packages"`

	byCode map[Code]Entry
}

//go:embed catalog.yaml
var catalogYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It panics only if the embedded file is
// malformed, which the package tests guard against.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("packages: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c.PeoplePerTable <= 0 {
		return nil, fmt.Errorf("people_per_table must be positive")
	}

	c.byCode = make(map[Code]Entry, len(c.Entries))
	for _, e := range c.Entries {
		if !e.Code.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, e.Code)
		}
		if e.PricePerTable < 0 {
			return nil, fmt.Errorf("package %s: negative price", e.Code)
		}
		if _, dup := c.byCode[e.Code]; dup {
			return nil, fmt.Errorf("package %s listed twice", e.Code)
		}
		c.byCode[e.Code] = e
	}
	for _, code := range Order {
		if _, ok := c.byCode[code]; !ok {
			return nil, fmt.Errorf("package %s missing from catalog", code)
		}
	}
	if !c.DefaultCode.Valid() {
		return nil, fmt.Errorf("default package %q is not in the catalog", c.DefaultCode)
	}
	return &c, nil
}

// Lookup returns the entry for code
func (c *Catalog) Lookup(code Code) (Entry, bool) {
	e, ok := c.byCode[code]
	return e, ok
}

// Price returns the per-table price for code, zero when unknown
func (c *Catalog) Price(code Code) float64 {
	return c.byCode[code].PricePerTable
}

// Label returns the display label for code, falling back to the raw code
func (c *Catalog) Label(code Code) string {
	if e, ok := c.byCode[code]; ok {
		return e.Label
	}
	return string(code)
}

// Total is tables × price for code
func (c *Catalog) Total(code Code, tables int) float64 {
	return float64(tables) * c.Price(code)
}

// People is the number of guests seated at the given number of tables
func (c *Catalog) People(tables int) int {
	return tables * c.PeoplePerTable
}

// Codes returns the package codes in display order
func (c *Catalog) Codes() []Code {
	out := make([]Code, len(Order))
	copy(out, Order)
	return out
}

// Valid reports whether code is in this catalog
func (c *Catalog) Valid(code Code) bool {
	_, ok := c.byCode[code]
	return ok
}

// Package pages maps content pages onto fixed-width slots of the tape
// timeline and answers position and adjacency queries about them.
package pages

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSlotWidth is the timeline width of one page, in seconds.
const DefaultSlotWidth = 60.0

// ErrUnknownPage is returned when a page id does not resolve.
var ErrUnknownPage = errors.New("unknown page")

// Slot is the timeline placement of a page.
type Slot struct {
	Position float64
	Duration float64
}

// Index is the query-only view of the content pages the navigation
// orchestrator depends on.
type Index interface {
	PositionOf(id string) (Slot, error)
	PageAt(position float64) (string, bool)
	Adjacent(id string) (prev, next string)
}

// Page is one content page.
type Page struct {
	ID       string  `yaml:"id"`
	Title    string  `yaml:"title"`
	Duration float64 `yaml:"duration,omitempty"`
}

// Catalog is an ordered, immutable set of pages laid out one per slot.
type Catalog struct {
	slotWidth float64
	pages     []Page
	byID      map[string]int
}

// catalogFile is the YAML layout of a catalog file.
type catalogFile struct {
	SlotWidth float64 `yaml:"slot_width"`
	Pages     []Page  `yaml:"pages"`
}

// NewCatalog validates pages and lays them out. A non-positive slotWidth
// falls back to DefaultSlotWidth.
func NewCatalog(slotWidth float64, pages []Page) (*Catalog, error) {
	if slotWidth <= 0 || math.IsNaN(slotWidth) || math.IsInf(slotWidth, 0) {
		slotWidth = DefaultSlotWidth
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("catalog has no pages")
	}
	c := &Catalog{
		slotWidth: slotWidth,
		pages:     make([]Page, len(pages)),
		byID:      make(map[string]int, len(pages)),
	}
	for i, p := range pages {
		if p.ID == "" {
			return nil, fmt.Errorf("page %d has an empty id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate page id %q", p.ID)
		}
		if p.Duration <= 0 || p.Duration > slotWidth {
			p.Duration = slotWidth
		}
		if p.Title == "" {
			p.Title = p.ID
		}
		c.pages[i] = p
		c.byID[p.ID] = i
	}
	return c, nil
}

// DefaultCatalog returns the built-in page set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultSlotWidth, []Page{
		{ID: "index", Title: "Index"},
		{ID: "about", Title: "About"},
		{ID: "work", Title: "Work"},
		{ID: "notes", Title: "Notes"},
		{ID: "contact", Title: "Contact"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewCatalog(f.SlotWidth, f.Pages)
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(catalogFile{SlotWidth: c.slotWidth, Pages: c.Pages()})
}

// SlotWidth returns the width of one slot in seconds.
func (c *Catalog) SlotWidth() float64 { return c.slotWidth }

// Length returns the total timeline length in seconds.
func (c *Catalog) Length() float64 { return float64(len(c.pages)) * c.slotWidth }

// Pages returns a copy of the pages in timeline order.
func (c *Catalog) Pages() []Page { return append([]Page{}, c.pages...) }

// First returns the id of the first page.
func (c *Catalog) First() string { return c.pages[0].ID }

// Lookup returns the page with the given id.
func (c *Catalog) Lookup(id string) (Page, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Page{}, false
	}
	return c.pages[i], true
}

// PositionOf returns the slot of page id.
func (c *Catalog) PositionOf(id string) (Slot, error) {
	i, ok := c.byID[id]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownPage, id)
	}
	return Slot{
		Position: float64(i) * c.slotWidth,
		Duration: c.pages[i].Duration,
	}, nil
}

// PageAt returns the page whose slot contains position. The end of the
// tape belongs to the last page.
func (c *Catalog) PageAt(position float64) (string, bool) {
	if position < 0 || math.IsNaN(position) {
		return "", false
	}
	i := int(math.Floor(position / c.slotWidth))
	if i == len(c.pages) && position == c.Length() {
		i--
	}
	if i < 0 || i >= len(c.pages) {
		return "", false
	}
	return c.pages[i].ID, true
}

// Adjacent returns the ids before and after id. Missing neighbours and
// unknown ids yield empty strings.
func (c *Catalog) Adjacent(id string) (prev, next string) {
	i, ok := c.byID[id]
	if !ok {
		return "", ""
	}
	if i > 0 {
		prev = c.pages[i-1].ID
	}
	if i < len(c.pages)-1 {
		next = c.pages[i+1].ID
	}
	return prev, next
}

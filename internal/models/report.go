package models

import (
	"strconv"
)

// Priority is the read-order tier of a section
type Priority string

const (
	PriorityP0 Priority = "P0" // safety and health, always surfaced
	PriorityP1 Priority = "P1" // government and official
	PriorityP2 Priority = "P2" // general and local news
)

// Rank returns the sort rank of the priority (lower reads first).
// Unknown values sort after P2.
func (p Priority) Rank() int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is one of P0, P1 or P2
func (p Priority) Valid() bool {
	return p.Rank() < 3
}

// Metadata describes when and where a report was produced
type Metadata struct {
	Date     string `yaml:"date"`           // calendar date, 2006-01-02
	Time     string `yaml:"time,omitempty"` // clock time, 15:04
	Location string `yaml:"location"`
}

// Section is a named, prioritized group of items from one news or safety category.
// Sections are matched by Name during aggregation; ID is only unique within one document.
type Section struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Priority Priority `yaml:"priority"`
	Items    []Item   `yaml:"items"`
}

// HasContent reports whether the section carries at least one real (non-placeholder) item
func (s *Section) HasContent() bool {
	for _, item := range s.Items {
		if item.Kind() != ItemKindPlaceholder {
			return true
		}
	}
	return false
}

// ReportDocument is the root artifact of a run: one raw and one translated document per run
type ReportDocument struct {
	Metadata Metadata   `yaml:"metadata"`
	Sections []*Section `yaml:"sections"`
}

// NewReportDocument creates an empty document for one run
func NewReportDocument(meta Metadata) *ReportDocument {
	return &ReportDocument{
		Metadata: meta,
		Sections: make([]*Section, 0),
	}
}

// AddSection appends a section and assigns the next sequential id
func (d *ReportDocument) AddSection(name string, priority Priority, items []Item) *Section {
	if items == nil {
		items = make([]Item, 0)
	}
	section := &Section{
		ID:       strconv.Itoa(len(d.Sections) + 1),
		Name:     name,
		Priority: priority,
		Items:    items,
	}
	d.Sections = append(d.Sections, section)
	return section
}

// Section returns the section with the given name, or nil
func (d *ReportDocument) Section(name string) *Section {
	for _, section := range d.Sections {
		if section.Name == name {
			return section
		}
	}
	return nil
}

// ContentSections counts sections that carry real items
func (d *ReportDocument) ContentSections() int {
	count := 0
	for _, section := range d.Sections {
		if section.HasContent() {
			count++
		}
	}
	return count
}

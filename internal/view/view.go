// Package view derives display structures from a reference set: filtering,
// sorting, dashboard grouping and the flattened quick-access list.
//
// Every function here is pure and leaves its input untouched.
package view

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/itsbohara/anchor/internal/models"
)

// A Collator keeps scratch buffers, so each comparison borrows its own.
var collators = sync.Pool{
	New: func() any { return collate.New(language.Und, collate.IgnoreCase) },
}

// compareText orders strings the way a locale-aware, case-insensitive
// comparison does: accented letters sort next to their base letter.
func compareText(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}

// Direction of a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sortable field names.
const (
	FieldName         = "referenceName"
	FieldPath         = "absolutePath"
	FieldType         = "type"
	FieldStatus       = "status"
	FieldDescription  = "description"
	FieldTags         = "tags"
	FieldCreatedAt    = "createdAt"
	FieldLastOpenedAt = "lastOpenedAt"
	FieldPinned       = "pinned"
)

// PinnedLabel is the title of the quick-access pinned section.
const PinnedLabel = "Pinned"

// Sort selects the field and direction for Dashboard.
type Sort struct {
	Field string
	Dir   Direction
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: FieldCreatedAt, Dir: Desc}

// NextSort returns the sort after the user picks field: the same field
// flips direction, a new field starts ascending.
func NextSort(cur Sort, field string) Sort {
	if cur.Field == field {
		if cur.Dir == Asc {
			return Sort{Field: field, Dir: Desc}
		}
		return Sort{Field: field, Dir: Asc}
	}
	return Sort{Field: field, Dir: Asc}
}

// Filter keeps references whose name or any tag contains query,
// case-insensitively. An empty query keeps everything.
func Filter(refs []models.Reference, query string) []models.Reference {
	out := make([]models.Reference, 0, len(refs))
	q := strings.ToLower(query)
	for _, r := range refs {
		if q == "" || matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r models.Reference, q string) bool {
	if strings.Contains(strings.ToLower(r.ReferenceName), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Compare orders a and b ascending by field.
func Compare(a, b models.Reference, field string) int {
	switch field {
	case FieldCreatedAt:
		return parseTime(a.CreatedAt).Compare(parseTime(b.CreatedAt))
	case FieldLastOpenedAt:
		return parseTime(a.LastOpenedAt).Compare(parseTime(b.LastOpenedAt))
	case FieldPinned:
		switch {
		case a.Pinned == b.Pinned:
			return 0
		case a.Pinned:
			return -1
		default:
			return 1
		}
	}
	return compareText(text(a, field), text(b, field))
}

func text(r models.Reference, field string) string {
	switch field {
	case FieldName:
		return r.ReferenceName
	case FieldPath:
		return r.AbsolutePath
	case FieldType:
		return string(r.Type)
	case FieldStatus:
		return string(r.Status)
	case FieldDescription:
		if r.Description != nil {
			return *r.Description
		}
	case FieldTags:
		return strings.Join(r.Tags, ", ")
	}
	return ""
}

// parseTime reads an RFC 3339 timestamp; anything else is the zero instant.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortBy returns a stably sorted copy of refs. Desc negates the comparator,
// so ties keep input order in both directions.
func SortBy(refs []models.Reference, s Sort) []models.Reference {
	out := slices.Clone(refs)
	slices.SortStableFunc(out, func(a, b models.Reference) int {
		c := Compare(a, b, s.Field)
		if s.Dir == Desc {
			return -c
		}
		return c
	})
	return out
}

// Group is one status bucket of the dashboard.
type Group struct {
	Status     models.Status
	Label      string
	References []models.Reference
}

// Dashboard filters and sorts the whole set, then partitions it into the
// non-empty status groups in fixed order. Within a group pinned entries
// come first; the sort order is kept otherwise.
func Dashboard(refs []models.Reference, query string, s Sort) []Group {
	sorted := SortBy(Filter(refs, query), s)
	var groups []Group
	for _, st := range models.StatusOrder {
		var members []models.Reference
		for _, r := range sorted {
			if r.Status == st {
				members = append(members, r)
			}
		}
		if len(members) == 0 {
			continue
		}
		slices.SortStableFunc(members, func(a, b models.Reference) int {
			return cmp.Compare(pinRank(a), pinRank(b))
		})
		groups = append(groups, Group{Status: st, Label: st.Label(), References: members})
	}
	return groups
}

func pinRank(r models.Reference) int {
	if r.Pinned {
		return 0
	}
	return 1
}

// Section is one block of the quick-access list. Status is empty for the
// pinned section.
type Section struct {
	Label      string
	Status     models.Status
	References []models.Reference
}

// QuickAccess filters refs and splits them into a pinned section followed
// by per-status sections of the unpinned rest. Empty sections are omitted
// and entries keep filter order.
func QuickAccess(refs []models.Reference, query string) []Section {
	filtered := Filter(refs, query)
	var sections []Section

	var pinned []models.Reference
	for _, r := range filtered {
		if r.Pinned {
			pinned = append(pinned, r)
		}
	}
	if len(pinned) > 0 {
		sections = append(sections, Section{Label: PinnedLabel, References: pinned})
	}

	for _, st := range models.StatusOrder {
		var members []models.Reference
		for _, r := range filtered {
			if !r.Pinned && r.Status == st {
				members = append(members, r)
			}
		}
		if len(members) > 0 {
			sections = append(sections, Section{Label: st.Label(), Status: st, References: members})
		}
	}
	return sections
}

// RowKind tags a Row.
type RowKind int

const (
	RowHeader RowKind = iota
	RowItem
)

// Row is either a section header or a reference entry.
type Row struct {
	Kind      RowKind
	Label     string           // set for RowHeader
	Reference models.Reference // set for RowItem
	Index     int              // position among items, -1 for headers
}

// Header builds a header row.
func Header(label string) Row { return Row{Kind: RowHeader, Label: label, Index: -1} }

// Item builds an entry row.
func Item(r models.Reference, index int) Row { return Row{Kind: RowItem, Reference: r, Index: index} }

// Flatten interleaves a header before each section's entries. Item rows
// carry their index in the header-free sequence.
func Flatten(sections []Section) []Row {
	var rows []Row
	n := 0
	for _, s := range sections {
		rows = append(rows, Header(s.Label))
		for _, r := range s.References {
			rows = append(rows, Item(r, n))
			n++
		}
	}
	return rows
}

// Items strips header rows, yielding the navigation index space.
func Items(rows []Row) []models.Reference {
	var out []models.Reference
	for _, r := range rows {
		if r.Kind == RowItem {
			out = append(out, r.Reference)
		}
	}
	return out
}

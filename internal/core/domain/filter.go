package domain

import "strings"

// Filter narrows or orders a poll listing. The set of filters is closed:
// TextSearch, CategoryFilter, TagFilter, StatusFilter and SortOrder. Adapters
// handle each one in a type switch.
type Filter interface {
	isFilter()
}

type TextSearch struct {
	Query string
}

type CategoryFilter struct {
	Category Category
}

type TagFilter struct {
	Tag string
}

type StatusFilter struct {
	Status PollStatus
}

type SortOrder struct {
	Sort PollSort
}

func (TextSearch) isFilter()     {}
func (CategoryFilter) isFilter() {}
func (TagFilter) isFilter()      {}
func (StatusFilter) isFilter()   {}
func (SortOrder) isFilter()      {}

type PollStatus string

const (
	PollStatusActive  PollStatus = "active"
	PollStatusExpired PollStatus = "expired"
)

type PollSort string

const (
	SortNewest     PollSort = "newest"
	SortOldest     PollSort = "oldest"
	SortMostVotes  PollSort = "most_votes"
	SortEndingSoon PollSort = "ending_soon"
)

// ParseFilters builds filters from loosely typed listing parameters, as they
// arrive from a query string. Unknown or empty values are ignored.
func ParseFilters(query, category, tag, status, sort string) []Filter {
	var filters []Filter
	if q := strings.TrimSpace(query); q != "" {
		filters = append(filters, TextSearch{Query: q})
	}
	if c := Category(strings.ToLower(strings.TrimSpace(category))); c.Valid() {
		filters = append(filters, CategoryFilter{Category: c})
	}
	if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
		filters = append(filters, TagFilter{Tag: t})
	}
	switch s := PollStatus(strings.ToLower(strings.TrimSpace(status))); s {
	case PollStatusActive, PollStatusExpired:
		filters = append(filters, StatusFilter{Status: s})
	}
	switch s := PollSort(strings.ToLower(strings.TrimSpace(sort))); s {
	case SortNewest, SortOldest, SortMostVotes, SortEndingSoon:
		filters = append(filters, SortOrder{Sort: s})
	}
	return filters
}

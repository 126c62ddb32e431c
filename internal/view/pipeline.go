// Package view derives presentation slices from raw store data. Every
// function here is a pure transformation: same inputs, same outputs, and the
// input collections are never mutated.
package view

import (
	"sort"
	"strings"

	"github.com/vibecheck/vibecheck-dash/internal/api"
)

// FindingQuery is the ephemeral view configuration for the findings list.
type FindingQuery struct {
	Search   string
	Severity string
	Category string
	Agent    string
	SortKey  string // "severity" (default) or "created_at"
	Page     int
	PerPage  int
}

// FindingPage is one derived page of findings plus its pagination meta.
type FindingPage struct {
	Items      []api.Finding `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	TotalCount int           `json:"total_count"`
}

// AssessmentPage is one derived page of assessments in server order.
type AssessmentPage struct {
	Items      []api.Assessment `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	TotalCount int              `json:"total_count"`
}

func severityRank(severity string) int {
	switch severity {
	case "critical":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	case "info":
		return 4
	default:
		return 99
	}
}

// Filter keeps a finding iff every configured filter matches: severity,
// category, and agent by equality, the search term by case-insensitive
// substring over title plus description.
func Filter(items []api.Finding, q FindingQuery) []api.Finding {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]api.Finding, 0, len(items))
	for _, f := range items {
		if q.Severity != "" && f.Severity != q.Severity {
			continue
		}
		if q.Category != "" && f.Category != q.Category {
			continue
		}
		if q.Agent != "" && f.Agent != q.Agent {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(f.Title + " " + f.Description)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// Sort orders findings by the configured sort key: creation time descending
// for "created_at", otherwise severity rank ascending with creation time
// descending as tie-break. The sort is stable beyond the tie-break.
func Sort(items []api.Finding, sortKey string) []api.Finding {
	out := make([]api.Finding, len(items))
	copy(out, items)

	if sortKey == "created_at" {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := severityRank(out[i].Severity), severityRank(out[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Visible is the filtered and sorted, unpaginated findings slice. Both
// pagination and export consume it.
func Visible(items []api.Finding, q FindingQuery) []api.Finding {
	return Sort(Filter(items, q), q.SortKey)
}

// clampPage clamps page into [1, totalPages] with
// totalPages = max(1, ceil(total/perPage)).
func clampPage(total, page, perPage int) (int, int, int) {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	offset := (page - 1) * perPage
	return page, totalPages, offset
}

// Findings runs the full pipeline: filter, sort, clamp, slice.
func Findings(items []api.Finding, q FindingQuery) FindingPage {
	visible := Visible(items, q)
	page, totalPages, offset := clampPage(len(visible), q.Page, q.PerPage)

	end := offset + q.PerPage
	if q.PerPage < 1 {
		end = offset + 1
	}
	if end > len(visible) {
		end = len(visible)
	}
	if offset > len(visible) {
		offset = len(visible)
	}

	return FindingPage{
		Items:      visible[offset:end:end],
		Page:       page,
		TotalPages: totalPages,
		TotalCount: len(visible),
	}
}

// Assessments clamps and slices the assessment collection in server order.
func Assessments(items []api.Assessment, page, perPage int) AssessmentPage {
	page, totalPages, offset := clampPage(len(items), page, perPage)

	end := offset + perPage
	if perPage < 1 {
		end = offset + 1
	}
	if end > len(items) {
		end = len(items)
	}
	if offset > len(items) {
		offset = len(items)
	}

	return AssessmentPage{
		Items:      items[offset:end:end],
		Page:       page,
		TotalPages: totalPages,
		TotalCount: len(items),
	}
}

// FilterOptions returns the distinct category and agent values present in
// the collection, sorted, for populating filter dropdowns.
func FilterOptions(items []api.Finding) (categories, agents []string) {
	catSet := map[string]struct{}{}
	agentSet := map[string]struct{}{}
	for _, f := range items {
		if f.Category != "" {
			catSet[f.Category] = struct{}{}
		}
		if f.Agent != "" {
			agentSet[f.Agent] = struct{}{}
		}
	}
	for c := range catSet {
		categories = append(categories, c)
	}
	for a := range agentSet {
		agents = append(agents, a)
	}
	sort.Strings(categories)
	sort.Strings(agents)
	return categories, agents
}

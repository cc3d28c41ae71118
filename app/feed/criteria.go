package feed

import (
	"slices"
	"strings"
)

// Criteria is the filter, sort and window applied to the update collection.
// Backends compile it into their own parameterised query text; Matches is the
// same predicate evaluated in Go.
//
// Base predicate: topic == Product AND language == Language.
// Weekly: gpt_weekly_summary_tokens is present.
// Single: gpt_title_response is present, status != "skip" and
// gpt_weekly_summary_tokens is absent, which keeps the two feeds disjoint.
// Results are ordered by commit_time descending.
type Criteria struct {
	Product    string
	Language   string
	UpdateType UpdateType
	Offset     int
	Limit      int
}

// NewCriteria builds the criteria for a normalised request.
func NewCriteria(req Request) Criteria {
	page := min(max(req.Page, 1), MaxPage)
	return Criteria{
		Product:    req.Product,
		Language:   req.Language,
		UpdateType: req.UpdateType,
		Offset:     (page - 1) * PageSize,
		Limit:      PageSize,
	}
}

// Unpaged drops the window; used by the count query.
func (c Criteria) Unpaged() Criteria {
	c.Offset = 0
	c.Limit = 0
	return c
}

func (c Criteria) Paged() bool {
	return c.Limit > 0
}

func (c Criteria) Weekly() bool {
	return c.UpdateType == UpdateTypeWeekly
}

func (c Criteria) Matches(r UpdateRecord) bool {
	if r.Topic != c.Product || r.Language != c.Language {
		return false
	}
	if c.Weekly() {
		return r.IsWeekly()
	}
	return r.GptTitleResponse != nil && !r.IsSkipped() && !r.IsWeekly()
}

// Window returns the slice of ordered records the criteria's page covers.
// Unpaged criteria return everything.
func (c Criteria) Window(records []UpdateRecord) []UpdateRecord {
	if !c.Paged() {
		return records
	}
	offset := max(c.Offset, 0)
	if offset >= len(records) {
		return []UpdateRecord{}
	}
	return records[offset:min(offset+c.Limit, len(records))]
}

// SortRecords orders records by commit_time descending. Ties are broken by id
// so paging is deterministic.
func SortRecords(records []UpdateRecord) {
	slices.SortStableFunc(records, func(a, b UpdateRecord) int {
		if c := strings.Compare(b.CommitTime, a.CommitTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

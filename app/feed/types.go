package feed

import (
	"encoding/json"
)

type UpdateType string

const (
	UpdateTypeSingle UpdateType = "single"
	UpdateTypeWeekly UpdateType = "weekly"
)

const (
	PageSize = 20

	DefaultProduct  = "AOAI-V2"
	DefaultLanguage = "Chinese"

	StatusSkip = "skip"
)

// Stored record types

// UpdateRecord mirrors a document in the update collection. Optional fields are
// pointers so an absent field is distinguishable from an empty one.
type UpdateRecord struct {
	ID                     string          `json:"id"`
	Topic                  string          `json:"topic"`
	Language               string          `json:"language"`
	CommitTime             string          `json:"commit_time"`
	CommitURL              string          `json:"commit_url"`
	Status                 *string         `json:"status,omitempty"`
	GptTitleResponse       *string         `json:"gpt_title_response,omitempty"`
	GptSummaryResponse     *string         `json:"gpt_summary_response,omitempty"`
	GptWeeklySummaryTokens json.RawMessage `json:"gpt_weekly_summary_tokens,omitempty"`
	TeamsMessage           *TeamsMessage   `json:"teams_message_jsondata,omitempty"`
}

type TeamsMessage struct {
	Title *string `json:"title,omitempty"`
	Text  *string `json:"text,omitempty"`
}

// IsWeekly reports whether the record is a weekly aggregate. Only the presence
// of gpt_weekly_summary_tokens matters, not its value.
func (r UpdateRecord) IsWeekly() bool {
	return len(r.GptWeeklySummaryTokens) > 0
}

func (r UpdateRecord) IsSkipped() bool {
	return r.Status != nil && *r.Status == StatusSkip
}

// Response types

type FeedItem struct {
	ID         string `json:"id"`
	Tag        string `json:"tag"`
	Title      string `json:"title"`
	GptSummary string `json:"gptSummary"`
	Timestamp  string `json:"timestamp"`
	CommitURL  string `json:"commitUrl"`
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
	PageSize    int `json:"pageSize"`
}

type Response struct {
	Updates    []FeedItem `json:"updates"`
	Pagination Pagination `json:"pagination"`
}

type SearchResult struct {
	Keyword string     `json:"keyword"`
	Total   int        `json:"total"`
	Updates []FeedItem `json:"updates"`
}

func NewPagination(page, totalItems int) Pagination {
	return Pagination{
		CurrentPage: page,
		TotalPages:  (totalItems + PageSize - 1) / PageSize,
		TotalItems:  totalItems,
		PageSize:    PageSize,
	}
}

func StringPtr(s string) *string {
	return &s
}

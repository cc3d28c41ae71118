package feed

import (
	"encoding/json"
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"1", 1},
		{"3", 3},
		{" 4 ", 4},
		{"0", 1},
		{"-2", 1},
		{"abc", 1},
		{"2.5", 1},
		{"100000", MaxPage},
		{"100001", MaxPage},
		{"461168601842738792", MaxPage},
		{"99999999999999999999999", MaxPage},
		{"-99999999999999999999999", 1},
	}

	for _, tt := range tests {
		if got := ParsePage(tt.raw); got != tt.want {
			t.Errorf("ParsePage(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestRequestNormalizeDefaults(t *testing.T) {
	req := Request{}.Normalize()

	if req.Product != DefaultProduct {
		t.Errorf("Expected product '%s', got '%s'", DefaultProduct, req.Product)
	}
	if req.Language != DefaultLanguage {
		t.Errorf("Expected language '%s', got '%s'", DefaultLanguage, req.Language)
	}
	if req.Page != 1 {
		t.Errorf("Expected page 1, got %d", req.Page)
	}
	if req.UpdateType != UpdateTypeSingle {
		t.Errorf("Expected update type '%s', got '%s'", UpdateTypeSingle, req.UpdateType)
	}
}

func TestRequestNormalizeKeepsValues(t *testing.T) {
	req := Request{Product: "AML", Language: "en", Page: 4, UpdateType: "Weekly"}.Normalize()

	if req.Product != "AML" {
		t.Errorf("Expected product 'AML', got '%s'", req.Product)
	}
	if req.Language != "English" {
		t.Errorf("Expected language 'English', got '%s'", req.Language)
	}
	if req.Page != 4 {
		t.Errorf("Expected page 4, got %d", req.Page)
	}
	if req.UpdateType != UpdateTypeWeekly {
		t.Errorf("Expected update type '%s', got '%s'", UpdateTypeWeekly, req.UpdateType)
	}
}

func TestRequestValidate(t *testing.T) {
	valid := Request{Product: "AML", Language: "English", Page: 1, UpdateType: UpdateTypeSingle}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid request, got: %v", err)
	}

	invalid := Request{Product: "AML", Language: "English", Page: 1, UpdateType: "monthly"}
	err := invalid.Validate()
	if err == nil {
		t.Fatal("Expected validation error for unknown update type")
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("Expected validation.Errors, got %T", err)
	}
	if _, ok := errs["UpdateType"]; !ok {
		t.Errorf("Expected UpdateType error, got %v", errs)
	}
}

func TestNewCriteriaWindow(t *testing.T) {
	tests := []struct {
		page       int
		wantOffset int
	}{
		{1, 0},
		{2, 20},
		{3, 40},
		{0, 0},
		{-5, 0},
		{MaxPage + 1, (MaxPage - 1) * PageSize},
		{461168601842738792, (MaxPage - 1) * PageSize},
	}

	for _, tt := range tests {
		c := NewCriteria(Request{Product: "AML", Language: "English", Page: tt.page, UpdateType: UpdateTypeSingle})
		if c.Offset != tt.wantOffset {
			t.Errorf("page %d: expected offset %d, got %d", tt.page, tt.wantOffset, c.Offset)
		}
		if c.Limit != PageSize {
			t.Errorf("page %d: expected limit %d, got %d", tt.page, PageSize, c.Limit)
		}
	}
}

func TestRequestNormalizeCapsPage(t *testing.T) {
	req := Request{Page: 461168601842738792}.Normalize()
	if req.Page != MaxPage {
		t.Errorf("Expected page %d, got %d", MaxPage, req.Page)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Expected capped request to validate, got: %v", err)
	}

	if err := (Request{Product: "AML", Language: "English", Page: MaxPage + 1, UpdateType: UpdateTypeSingle}).Validate(); err == nil {
		t.Error("Expected validation error for page above the limit")
	}
}

func TestCriteriaWindow(t *testing.T) {
	records := make([]UpdateRecord, 5)
	for i := range records {
		records[i].ID = string(rune('a' + i))
	}

	tests := []struct {
		name     string
		criteria Criteria
		wantIDs  string
	}{
		{"first page", Criteria{Offset: 0, Limit: 2}, "ab"},
		{"partial last page", Criteria{Offset: 4, Limit: 2}, "e"},
		{"past the end", Criteria{Offset: 10, Limit: 2}, ""},
		{"negative offset", Criteria{Offset: -40, Limit: 2}, "ab"},
		{"unpaged", Criteria{}, "abcde"},
	}

	for _, tt := range tests {
		got := ""
		window := tt.criteria.Window(records)
		if window == nil {
			t.Errorf("%s: expected non-nil window", tt.name)
		}
		for _, r := range window {
			got += r.ID
		}
		if got != tt.wantIDs {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.wantIDs, got)
		}
	}
}

func TestSortRecords(t *testing.T) {
	records := []UpdateRecord{
		{ID: "b", CommitTime: "2024-01-01"},
		{ID: "c", CommitTime: "2024-01-02"},
		{ID: "a", CommitTime: "2024-01-01"},
	}
	SortRecords(records)

	if records[0].ID != "c" || records[1].ID != "a" || records[2].ID != "b" {
		t.Errorf("Unexpected order %s%s%s", records[0].ID, records[1].ID, records[2].ID)
	}
}

func TestCriteriaUnpaged(t *testing.T) {
	c := NewCriteria(Request{Product: "AML", Language: "English", Page: 3, UpdateType: UpdateTypeWeekly})
	u := c.Unpaged()

	if u.Paged() {
		t.Error("Expected unpaged criteria")
	}
	if u.Product != c.Product || u.Language != c.Language || u.UpdateType != c.UpdateType {
		t.Error("Expected filter fields to be preserved")
	}
}

func TestCriteriaMatches(t *testing.T) {
	single := singleRecord("single", "1 Title")
	skipped := singleRecord("skipped", "1 Title")
	skipped.Status = StringPtr(StatusSkip)
	otherStatus := singleRecord("other-status", "1 Title")
	otherStatus.Status = StringPtr("done")
	untitled := singleRecord("untitled", "")
	untitled.GptTitleResponse = nil
	weekly := weeklyRecord("weekly", "[Weekly Summary] T", "x")
	weeklyWithTitle := weeklyRecord("weekly-titled", "[Weekly Summary] T", "x")
	weeklyWithTitle.GptTitleResponse = StringPtr("1 Title")
	nullTokens := singleRecord("null-tokens", "1 Title")
	nullTokens.GptWeeklySummaryTokens = json.RawMessage(`null`)
	otherTopic := singleRecord("other-topic", "1 Title")
	otherTopic.Topic = "AML"
	otherLanguage := singleRecord("other-language", "1 Title")
	otherLanguage.Language = "English"

	singleCriteria := Criteria{Product: "AOAI-V2", Language: "Chinese", UpdateType: UpdateTypeSingle}
	weeklyCriteria := Criteria{Product: "AOAI-V2", Language: "Chinese", UpdateType: UpdateTypeWeekly}

	tests := []struct {
		record     UpdateRecord
		wantSingle bool
		wantWeekly bool
	}{
		{single, true, false},
		{skipped, false, false},
		{otherStatus, true, false},
		{untitled, false, false},
		{weekly, false, true},
		{weeklyWithTitle, false, true},
		{nullTokens, false, true},
		{otherTopic, false, false},
		{otherLanguage, false, false},
	}

	for _, tt := range tests {
		if got := singleCriteria.Matches(tt.record); got != tt.wantSingle {
			t.Errorf("%s: single match = %v, want %v", tt.record.ID, got, tt.wantSingle)
		}
		if got := weeklyCriteria.Matches(tt.record); got != tt.wantWeekly {
			t.Errorf("%s: weekly match = %v, want %v", tt.record.ID, got, tt.wantWeekly)
		}
		if singleCriteria.Matches(tt.record) && weeklyCriteria.Matches(tt.record) {
			t.Errorf("%s: record matched both feeds", tt.record.ID)
		}
	}
}

func TestUpdateRecordDecodesPresence(t *testing.T) {
	raw := `{"id":"1","topic":"AML","language":"English","commit_time":"2024-01-01 00:00:00",
		"commit_url":"u","gpt_weekly_summary_tokens":512,
		"teams_message_jsondata":{"title":"[Weekly Summary] x","text":"y"}}`

	var record UpdateRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatal(err)
	}

	if !record.IsWeekly() {
		t.Error("Expected weekly record")
	}
	if record.GptTitleResponse != nil {
		t.Error("Expected absent title")
	}
	if record.TeamsMessage == nil || *record.TeamsMessage.Text != "y" {
		t.Error("Expected teams message text 'y'")
	}
}

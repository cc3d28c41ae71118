package cosmos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/lysyi3m/eyes-on-docs/app/feed"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

type fakeContainer struct {
	pages  [][][]byte
	err    error
	pkPath string

	queries []string
	params  [][]azcosmos.QueryParameter
	keys    []azcosmos.PartitionKey
	created [][]byte
	reads   int
}

func (f *fakeContainer) NewQueryItemsPager(query string, pk azcosmos.PartitionKey, o *azcosmos.QueryOptions) *runtime.Pager[azcosmos.QueryItemsResponse] {
	f.queries = append(f.queries, query)
	f.params = append(f.params, o.QueryParameters)
	f.keys = append(f.keys, pk)

	i := 0
	return runtime.NewPager(runtime.PagingHandler[azcosmos.QueryItemsResponse]{
		More: func(azcosmos.QueryItemsResponse) bool {
			return i < len(f.pages)
		},
		Fetcher: func(ctx context.Context, _ *azcosmos.QueryItemsResponse) (azcosmos.QueryItemsResponse, error) {
			if f.err != nil {
				return azcosmos.QueryItemsResponse{}, f.err
			}
			if i >= len(f.pages) {
				return azcosmos.QueryItemsResponse{}, nil
			}
			page := f.pages[i]
			i++
			return azcosmos.QueryItemsResponse{Items: page}, nil
		},
	})
}

func (f *fakeContainer) CreateItem(ctx context.Context, pk azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error) {
	if f.err != nil {
		return azcosmos.ItemResponse{}, f.err
	}
	f.keys = append(f.keys, pk)
	f.created = append(f.created, item)
	return azcosmos.ItemResponse{}, nil
}

func (f *fakeContainer) Read(ctx context.Context, o *azcosmos.ReadContainerOptions) (azcosmos.ContainerResponse, error) {
	f.reads++
	return azcosmos.ContainerResponse{
		ContainerProperties: &azcosmos.ContainerProperties{
			PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{Paths: []string{f.pkPath}},
		},
	}, nil
}

func paramValue(params []azcosmos.QueryParameter, name string) (any, bool) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func TestBuildUpdatesQuerySingle(t *testing.T) {
	criteria := feed.NewCriteria(feed.Request{Product: "AOAI-V2", Language: "Chinese", Page: 2, UpdateType: feed.UpdateTypeSingle})
	query, params := buildUpdatesQuery(criteria)

	for _, fragment := range []string{
		"c.topic = @topic",
		"c.language = @language",
		"IS_DEFINED(c.gpt_title_response)",
		"(NOT IS_DEFINED(c.status) OR IS_NULL(c.status) OR c.status != @skip)",
		"NOT IS_DEFINED(c.gpt_weekly_summary_tokens)",
		"ORDER BY c.commit_time DESC",
		"OFFSET @offset LIMIT @limit",
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("Expected query to contain %q, got: %s", fragment, query)
		}
	}

	if v, _ := paramValue(params, "@offset"); v != 20 {
		t.Errorf("Expected offset 20, got %v", v)
	}
	if v, _ := paramValue(params, "@limit"); v != feed.PageSize {
		t.Errorf("Expected limit %d, got %v", feed.PageSize, v)
	}
	if v, _ := paramValue(params, "@skip"); v != feed.StatusSkip {
		t.Errorf("Expected skip parameter, got %v", v)
	}
	if strings.Contains(query, "AOAI-V2") {
		t.Error("Product must be bound as a parameter")
	}
}

func TestBuildUpdatesQueryWeekly(t *testing.T) {
	query, params := buildUpdatesQuery(feed.Criteria{Product: "AML", Language: "English", UpdateType: feed.UpdateTypeWeekly})

	if !strings.Contains(query, "IS_DEFINED(c.gpt_weekly_summary_tokens)") || strings.Contains(query, "NOT IS_DEFINED(c.gpt_weekly_summary_tokens)") {
		t.Errorf("Unexpected weekly predicate: %s", query)
	}
	if strings.Contains(query, "gpt_title_response") {
		t.Errorf("Weekly query must not filter on title: %s", query)
	}
	if strings.Contains(query, "OFFSET") {
		t.Errorf("Unpaged criteria must not add a window: %s", query)
	}
	if _, ok := paramValue(params, "@skip"); ok {
		t.Error("Weekly query should not bind @skip")
	}
}

func TestBuildCountQuerySharesPredicate(t *testing.T) {
	criteria := feed.NewCriteria(feed.Request{Product: "AML", Language: "English", Page: 3, UpdateType: feed.UpdateTypeSingle})

	countQuery, _ := buildCountQuery(criteria.Unpaged())
	where, _ := whereClause(criteria)

	if countQuery != "SELECT VALUE COUNT(1) FROM c WHERE "+where {
		t.Errorf("Unexpected count query: %s", countQuery)
	}
}

func TestUpdateRepositoryQuery(t *testing.T) {
	container := &fakeContainer{
		pages: [][][]byte{
			{[]byte(`{"id":"1","topic":"AML","language":"English","commit_time":"2024-01-02","gpt_title_response":"1 [A] One"}`)},
			{[]byte(`{"id":"2","topic":"AML","language":"English","commit_time":"2024-01-01","gpt_title_response":"1 Two","_etag":"x"}`)},
		},
	}
	repo := NewUpdateRepository(container, true)

	records, err := repo.Query(context.Background(), feed.Criteria{Product: "AML", Language: "English"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(records) != 2 || records[0].ID != "1" || records[1].ID != "2" {
		t.Errorf("Unexpected records %+v", records)
	}
	if !reflect.DeepEqual(container.keys[0], azcosmos.NewPartitionKeyString("AML")) {
		t.Error("Expected topic partition key for partitioned container")
	}
}

func TestUpdateRepositoryPartitionedCount(t *testing.T) {
	container := &fakeContainer{pages: [][][]byte{{[]byte(`7`)}, {[]byte(`5`)}}}
	repo := NewUpdateRepository(container, true)

	total, err := repo.Count(context.Background(), feed.Criteria{Product: "AML", Language: "English", Limit: 20, Offset: 40})
	if err != nil {
		t.Fatal(err)
	}
	if total != 12 {
		t.Errorf("Expected counts to sum to 12, got %d", total)
	}
	if !strings.HasPrefix(container.queries[0], "SELECT VALUE COUNT(1)") || strings.Contains(container.queries[0], "OFFSET") {
		t.Errorf("Unexpected count query: %s", container.queries[0])
	}
	if !reflect.DeepEqual(container.keys[0], azcosmos.NewPartitionKeyString("AML")) {
		t.Error("Expected topic partition key for partitioned container")
	}
}

func TestUpdateRepositoryCrossPartitionQuery(t *testing.T) {
	container := &fakeContainer{
		pages: [][][]byte{
			{
				[]byte(`{"id":"b","topic":"AML","language":"English","commit_time":"2024-01-01","gpt_title_response":"1 B"}`),
				[]byte(`{"id":"d","topic":"AML","language":"English","commit_time":"2024-01-04","gpt_title_response":"1 D"}`),
			},
			{
				[]byte(`{"id":"a","topic":"AML","language":"English","commit_time":"2024-01-01","gpt_title_response":"1 A"}`),
				[]byte(`{"id":"c","topic":"AML","language":"English","commit_time":"2024-01-03","gpt_title_response":"1 C"}`),
			},
		},
	}
	repo := NewUpdateRepository(container, false)

	records, err := repo.Query(context.Background(), feed.Criteria{Product: "AML", Language: "English", Offset: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 2 || records[0].ID != "c" || records[1].ID != "a" {
		t.Errorf("Expected window [c a] of the ordered records, got %+v", records)
	}

	query := container.queries[0]
	for _, clause := range []string{"ORDER BY", "OFFSET", "LIMIT", "COUNT"} {
		if strings.Contains(query, clause) {
			t.Errorf("Cross-partition query must be filter only, found %s in: %s", clause, query)
		}
	}
	if _, ok := paramValue(container.params[0], "@offset"); ok {
		t.Error("Cross-partition query must not bind @offset")
	}
	if !reflect.DeepEqual(container.keys[0], azcosmos.NewPartitionKey()) {
		t.Error("Expected empty partition key for cross-partition query")
	}

	past, err := repo.Query(context.Background(), feed.Criteria{Product: "AML", Language: "English", Offset: 40, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if past == nil || len(past) != 0 {
		t.Errorf("Expected empty page past the end, got %+v", past)
	}
}

func TestUpdateRepositoryCrossPartitionCount(t *testing.T) {
	container := &fakeContainer{pages: [][][]byte{{[]byte(`"a"`), []byte(`"b"`)}, {[]byte(`"c"`)}}}
	repo := NewUpdateRepository(container, false)

	total, err := repo.Count(context.Background(), feed.Criteria{Product: "AML", Language: "English", Limit: 20, Offset: 40})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("Expected 3 matching ids, got %d", total)
	}
	if !strings.HasPrefix(container.queries[0], "SELECT VALUE c.id FROM c WHERE") || strings.Contains(container.queries[0], "COUNT") {
		t.Errorf("Unexpected cross-partition count query: %s", container.queries[0])
	}
	if !reflect.DeepEqual(container.keys[0], azcosmos.NewPartitionKey()) {
		t.Error("Expected empty partition key for cross-partition query")
	}
}

func TestUpdateRepositoryMatchesMemorySemantics(t *testing.T) {
	var docs [][]byte
	memory := feed.NewMemoryRepository()
	for i := 0; i < 23; i++ {
		record := feed.UpdateRecord{
			ID:               fmt.Sprintf("r-%02d", i),
			Topic:            "AML",
			Language:         "English",
			CommitTime:       fmt.Sprintf("2024-02-%02d", 1+i%7),
			GptTitleResponse: feed.StringPtr(fmt.Sprintf("%d Title %d", i+1, i)),
		}
		memory.Add(record)
		body, err := json.Marshal(record)
		if err != nil {
			t.Fatal(err)
		}
		docs = append(docs, body)
	}

	repo := NewUpdateRepository(&fakeContainer{pages: [][][]byte{docs}}, false)

	for page := 1; page <= 3; page++ {
		criteria := feed.NewCriteria(feed.Request{Product: "AML", Language: "English", Page: page, UpdateType: feed.UpdateTypeSingle})

		want, _ := memory.Query(context.Background(), criteria)
		got, err := repo.Query(context.Background(), criteria)
		if err != nil {
			t.Fatal(err)
		}

		if len(got) != len(want) {
			t.Fatalf("page %d: expected %d records, got %d", page, len(want), len(got))
		}
		for i := range want {
			if got[i].ID != want[i].ID {
				t.Errorf("page %d item %d: expected %s, got %s", page, i, want[i].ID, got[i].ID)
			}
		}
	}
}

func TestUpdateRepositoryError(t *testing.T) {
	repo := NewUpdateRepository(&fakeContainer{pages: [][][]byte{{}}, err: errors.New("throttled")}, true)

	if _, err := repo.Query(context.Background(), feed.Criteria{}); err == nil {
		t.Error("Expected query error")
	}
	if _, err := repo.Count(context.Background(), feed.Criteria{}); err == nil {
		t.Error("Expected count error")
	}
}

func TestVisitRepositoryRecordVisit(t *testing.T) {
	container := &fakeContainer{pkPath: "/userInfo/name"}
	repo := NewVisitRepository(container)

	ts := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		err := repo.RecordVisit(context.Background(), usage.Visit{
			UserName:  "alice",
			Path:      usage.PathUpdates,
			Product:   "AML",
			Page:      2,
			Timestamp: ts,
		})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	if container.reads != 1 {
		t.Errorf("Expected container definition to be read once, got %d", container.reads)
	}
	if !reflect.DeepEqual(container.keys[0], azcosmos.NewPartitionKeyString("alice")) {
		t.Error("Expected partition key from userInfo.name")
	}

	var doc map[string]any
	if err := json.Unmarshal(container.created[0], &doc); err != nil {
		t.Fatal(err)
	}
	if doc["timestamp"] != "2024-03-01T08:30:00.000Z" {
		t.Errorf("Unexpected timestamp %v", doc["timestamp"])
	}
	if doc["id"] == "" {
		t.Error("Expected generated id")
	}
	if params, ok := doc["searchParams"].(map[string]any); !ok || params["product"] != "AML" {
		t.Errorf("Unexpected searchParams %v", doc["searchParams"])
	}
}

func TestVisitRepositoryListVisits(t *testing.T) {
	container := &fakeContainer{
		pages: [][][]byte{{
			[]byte(`{"id":"v1","userInfo":{"name":"bob","email":"bob@example.com"},"path":"/","searchParams":{"product":"AML"},"timestamp":"2024-03-01T08:30:00.000Z"}`),
		}},
	}
	repo := NewVisitRepository(container)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	visits, err := repo.ListVisits(context.Background(), start, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	if len(visits) != 1 || visits[0].UserName != "bob" || visits[0].Product != "AML" {
		t.Errorf("Unexpected visits %+v", visits)
	}
	if !strings.Contains(container.queries[0], "c.timestamp >= @start") || strings.Contains(container.queries[0], "@end") {
		t.Errorf("Unexpected visit query: %s", container.queries[0])
	}
}

func TestVisitRepositoryListVisitsSkipsBadDocuments(t *testing.T) {
	container := &fakeContainer{
		pages: [][][]byte{{
			[]byte(`{"id":"v1","userInfo":{"name":"bob"},"path":"/","timestamp":"2024-03-01T08:30:00.000Z"}`),
			[]byte(`{"id":"v2","userInfo":{"name":"carol"},"path":"/","timestamp":"Fri Mar 01 2024"}`),
			[]byte(`{"id":"v3","userInfo":"not an object"}`),
			[]byte(`{"id":"v4","userInfo":{"name":"dave"},"path":"/api/updates","timestamp":"2024-03-02T09:00:00.000Z"}`),
		}},
	}
	repo := NewVisitRepository(container)

	visits, err := repo.ListVisits(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Expected bad documents to be skipped, got error: %v", err)
	}
	if len(visits) != 2 || visits[0].ID != "v1" || visits[1].ID != "v4" {
		t.Errorf("Expected visits v1 and v4, got %+v", visits)
	}
}

func TestPartitionKeyValue(t *testing.T) {
	body := []byte(`{"id":"x","n":3,"nested":{"flag":true},"empty":null}`)

	tests := []struct {
		path    string
		want    azcosmos.PartitionKey
		wantErr bool
	}{
		{"/id", azcosmos.NewPartitionKeyString("x"), false},
		{"/n", azcosmos.NewPartitionKeyNumber(3), false},
		{"/nested/flag", azcosmos.NewPartitionKeyBool(true), false},
		{"/empty", azcosmos.NullPartitionKey, false},
		{"/missing", azcosmos.PartitionKey{}, true},
		{"/id/deeper", azcosmos.PartitionKey{}, true},
	}

	for _, tt := range tests {
		got, err := partitionKeyValue(body, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: unexpected error state: %v", tt.path, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: unexpected partition key", tt.path)
		}
	}
}

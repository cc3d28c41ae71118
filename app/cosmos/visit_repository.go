package cosmos

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/google/uuid"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

// Same layout as JavaScript's Date.toISOString, which existing documents use.
const timestampLayout = "2006-01-02T15:04:05.000Z"

type visitContainer interface {
	querier
	CreateItem(ctx context.Context, partitionKey azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	Read(ctx context.Context, o *azcosmos.ReadContainerOptions) (azcosmos.ContainerResponse, error)
}

type userInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type searchParams struct {
	Product    string `json:"product,omitempty"`
	Language   string `json:"language,omitempty"`
	UpdateType string `json:"updateType,omitempty"`
	Page       int    `json:"page,omitempty"`
}

type visitDocument struct {
	ID           string       `json:"id"`
	UserInfo     userInfo     `json:"userInfo"`
	Path         string       `json:"path"`
	SearchParams searchParams `json:"searchParams"`
	Timestamp    string       `json:"timestamp"`
}

func newVisitDocument(v usage.Visit) visitDocument {
	return visitDocument{
		ID:       v.ID,
		UserInfo: userInfo{Name: v.UserName, Email: v.UserEmail},
		Path:     v.Path,
		SearchParams: searchParams{
			Product:    v.Product,
			Language:   v.Language,
			UpdateType: v.UpdateType,
			Page:       v.Page,
		},
		Timestamp: v.Timestamp.UTC().Format(timestampLayout),
	}
}

func (d visitDocument) visit() (usage.Visit, error) {
	ts, err := time.Parse(time.RFC3339Nano, d.Timestamp)
	if err != nil {
		return usage.Visit{}, fmt.Errorf("failed to parse visit timestamp %q: %w", d.Timestamp, err)
	}
	return usage.Visit{
		ID:         d.ID,
		UserName:   d.UserInfo.Name,
		UserEmail:  d.UserInfo.Email,
		Path:       d.Path,
		Product:    d.SearchParams.Product,
		Language:   d.SearchParams.Language,
		UpdateType: d.SearchParams.UpdateType,
		Page:       d.SearchParams.Page,
		Timestamp:  ts,
	}, nil
}

// VisitRepository writes visits to the user traffic container. The partition
// key path is read from the container definition on first write.
type VisitRepository struct {
	container visitContainer

	mu     sync.Mutex
	pkPath string
}

func NewVisitRepository(container visitContainer) *VisitRepository {
	return &VisitRepository{container: container}
}

func (r *VisitRepository) partitionKeyPath(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pkPath != "" {
		return r.pkPath, nil
	}

	resp, err := r.container.Read(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read traffic container: %w", err)
	}
	if resp.ContainerProperties == nil || len(resp.ContainerProperties.PartitionKeyDefinition.Paths) == 0 {
		return "", fmt.Errorf("traffic container has no partition key")
	}

	r.pkPath = resp.ContainerProperties.PartitionKeyDefinition.Paths[0]
	return r.pkPath, nil
}

func (r *VisitRepository) RecordVisit(ctx context.Context, visit usage.Visit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.Timestamp.IsZero() {
		visit.Timestamp = time.Now()
	}

	body, err := json.Marshal(newVisitDocument(visit))
	if err != nil {
		return fmt.Errorf("failed to encode visit: %w", err)
	}

	path, err := r.partitionKeyPath(ctx)
	if err != nil {
		return err
	}

	pk, err := partitionKeyValue(body, path)
	if err != nil {
		return err
	}

	if _, err := r.container.CreateItem(ctx, pk, body, nil); err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	return nil
}

func (r *VisitRepository) ListVisits(ctx context.Context, start, end time.Time) ([]usage.Visit, error) {
	var conditions []string
	var params []azcosmos.QueryParameter

	if !start.IsZero() {
		conditions = append(conditions, "c.timestamp >= @start")
		params = append(params, azcosmos.QueryParameter{Name: "@start", Value: start.UTC().Format(timestampLayout)})
	}
	if !end.IsZero() {
		conditions = append(conditions, "c.timestamp < @end")
		params = append(params, azcosmos.QueryParameter{Name: "@end", Value: end.UTC().Format(timestampLayout)})
	}

	query := "SELECT * FROM c"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	pager := r.container.NewQueryItemsPager(query, azcosmos.NewPartitionKey(), &azcosmos.QueryOptions{
		QueryParameters: params,
	})

	visits := []usage.Visit{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query visits: %w", err)
		}

		for _, item := range page.Items {
			var doc visitDocument
			if err := json.Unmarshal(item, &doc); err != nil {
				slog.Warn("Skipping undecodable visit document", "error", err)
				continue
			}
			v, err := doc.visit()
			if err != nil {
				slog.Warn("Skipping visit document", "id", doc.ID, "error", err)
				continue
			}
			visits = append(visits, v)
		}
	}

	return visits, nil
}

// partitionKeyValue resolves a partition key path such as "/userInfo/name"
// against an encoded document.
func partitionKeyValue(body []byte, path string) (azcosmos.PartitionKey, error) {
	var node any
	if err := json.Unmarshal(body, &node); err != nil {
		return azcosmos.PartitionKey{}, fmt.Errorf("failed to decode document: %w", err)
	}

	for _, segment := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		obj, ok := node.(map[string]any)
		if !ok {
			return azcosmos.PartitionKey{}, fmt.Errorf("partition key path %s not found", path)
		}
		node, ok = obj[segment]
		if !ok {
			return azcosmos.PartitionKey{}, fmt.Errorf("partition key path %s not found", path)
		}
	}

	switch v := node.(type) {
	case string:
		return azcosmos.NewPartitionKeyString(v), nil
	case float64:
		return azcosmos.NewPartitionKeyNumber(v), nil
	case bool:
		return azcosmos.NewPartitionKeyBool(v), nil
	case nil:
		return azcosmos.NullPartitionKey, nil
	default:
		return azcosmos.PartitionKey{}, fmt.Errorf("unsupported partition key value at %s", path)
	}
}

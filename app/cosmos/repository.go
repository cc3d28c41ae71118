package cosmos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/lysyi3m/eyes-on-docs/app/feed"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

var (
	_ feed.UpdateRepository = (*UpdateRepository)(nil)
	_ usage.VisitRepository = (*VisitRepository)(nil)
)

// querier is the part of *azcosmos.ContainerClient the update repository uses.
type querier interface {
	NewQueryItemsPager(query string, partitionKey azcosmos.PartitionKey, o *azcosmos.QueryOptions) *runtime.Pager[azcosmos.QueryItemsResponse]
}

// UpdateRepository reads update records from the updates container. When the
// container is partitioned by /topic, queries target the product's partition
// and the container orders, windows and counts. Otherwise a filter-only query
// runs across partitions and the records are ordered, windowed and counted
// in Go.
type UpdateRepository struct {
	container   querier
	partitioned bool
}

func NewUpdateRepository(container querier, partitioned bool) *UpdateRepository {
	return &UpdateRepository{container: container, partitioned: partitioned}
}

func (r *UpdateRepository) Query(ctx context.Context, criteria feed.Criteria) ([]feed.UpdateRecord, error) {
	if r.partitioned {
		query, params := buildUpdatesQuery(criteria)
		return r.fetch(ctx, query, azcosmos.NewPartitionKeyString(criteria.Product), params)
	}

	query, params := buildFilterQuery(criteria)
	records, err := r.fetch(ctx, query, azcosmos.NewPartitionKey(), params)
	if err != nil {
		return nil, err
	}

	feed.SortRecords(records)
	return criteria.Window(records), nil
}

// Count runs SELECT VALUE COUNT(1) inside the topic partition. Across
// partitions it counts the ids the filter matches.
func (r *UpdateRepository) Count(ctx context.Context, criteria feed.Criteria) (int, error) {
	criteria = criteria.Unpaged()

	query, params := buildIDQuery(criteria)
	pk := azcosmos.NewPartitionKey()
	if r.partitioned {
		query, params = buildCountQuery(criteria)
		pk = azcosmos.NewPartitionKeyString(criteria.Product)
	}

	pager := r.container.NewQueryItemsPager(query, pk, &azcosmos.QueryOptions{
		QueryParameters: params,
	})

	total := 0
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count update records: %w", err)
		}

		if !r.partitioned {
			total += len(page.Items)
			continue
		}

		for _, item := range page.Items {
			var n int
			if err := json.Unmarshal(item, &n); err != nil {
				return 0, fmt.Errorf("failed to decode count: %w", err)
			}
			total += n
		}
	}

	return total, nil
}

func (r *UpdateRepository) fetch(ctx context.Context, query string, pk azcosmos.PartitionKey, params []azcosmos.QueryParameter) ([]feed.UpdateRecord, error) {
	pager := r.container.NewQueryItemsPager(query, pk, &azcosmos.QueryOptions{
		QueryParameters: params,
	})

	records := []feed.UpdateRecord{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query update records: %w", err)
		}

		for _, item := range page.Items {
			var record feed.UpdateRecord
			if err := json.Unmarshal(item, &record); err != nil {
				return nil, fmt.Errorf("failed to decode update record: %w", err)
			}
			records = append(records, record)
		}
	}

	return records, nil
}

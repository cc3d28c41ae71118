package cosmos

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"github.com/lysyi3m/eyes-on-docs/app/feed"
)

// whereClause compiles feed criteria into a Cosmos SQL predicate. Values are
// always bound as parameters.
func whereClause(criteria feed.Criteria) (string, []azcosmos.QueryParameter) {
	conditions := []string{"c.topic = @topic", "c.language = @language"}
	params := []azcosmos.QueryParameter{
		{Name: "@topic", Value: criteria.Product},
		{Name: "@language", Value: criteria.Language},
	}

	if criteria.Weekly() {
		conditions = append(conditions, "IS_DEFINED(c.gpt_weekly_summary_tokens)")
	} else {
		conditions = append(conditions,
			"IS_DEFINED(c.gpt_title_response)",
			"NOT IS_NULL(c.gpt_title_response)",
			"(NOT IS_DEFINED(c.status) OR IS_NULL(c.status) OR c.status != @skip)",
			"NOT IS_DEFINED(c.gpt_weekly_summary_tokens)")
		params = append(params, azcosmos.QueryParameter{Name: "@skip", Value: feed.StatusSkip})
	}

	return strings.Join(conditions, " AND "), params
}

// buildFilterQuery is the cross-partition form: the gateway only serves plain
// filters and projections there, so ordering and windowing happen in Go.
func buildFilterQuery(criteria feed.Criteria) (string, []azcosmos.QueryParameter) {
	where, params := whereClause(criteria)
	return "SELECT * FROM c WHERE " + where, params
}

func buildUpdatesQuery(criteria feed.Criteria) (string, []azcosmos.QueryParameter) {
	where, params := whereClause(criteria)

	query := "SELECT * FROM c WHERE " + where + " ORDER BY c.commit_time DESC"
	if criteria.Paged() {
		query += " OFFSET @offset LIMIT @limit"
		params = append(params,
			azcosmos.QueryParameter{Name: "@offset", Value: criteria.Offset},
			azcosmos.QueryParameter{Name: "@limit", Value: criteria.Limit})
	}

	return query, params
}

func buildCountQuery(criteria feed.Criteria) (string, []azcosmos.QueryParameter) {
	where, params := whereClause(criteria)
	return "SELECT VALUE COUNT(1) FROM c WHERE " + where, params
}

func buildIDQuery(criteria feed.Criteria) (string, []azcosmos.QueryParameter) {
	where, params := whereClause(criteria)
	return "SELECT VALUE c.id FROM c WHERE " + where, params
}

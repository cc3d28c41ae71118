package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lysyi3m/eyes-on-docs/app/feed"
)

const updateColumns = `id, topic, language, commit_time, commit_url, status,
	gpt_title_response, gpt_summary_response, gpt_weekly_summary_tokens,
	teams_title, teams_text, has_teams_message`

// UpdateRepository handles database operations for update records
type UpdateRepository struct {
	db *DB
}

func NewUpdateRepository(db *DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// whereClause compiles the feed criteria; the page and count queries share it.
func whereClause(criteria feed.Criteria) (string, []any) {
	conditions := []string{"topic = ?", "language = ?"}
	args := []any{criteria.Product, criteria.Language}

	if criteria.Weekly() {
		conditions = append(conditions, "gpt_weekly_summary_tokens IS NOT NULL")
	} else {
		conditions = append(conditions,
			"gpt_title_response IS NOT NULL",
			"(status IS NULL OR status != ?)",
			"gpt_weekly_summary_tokens IS NULL")
		args = append(args, feed.StatusSkip)
	}

	return strings.Join(conditions, " AND "), args
}

func (r *UpdateRepository) Query(ctx context.Context, criteria feed.Criteria) ([]feed.UpdateRecord, error) {
	where, args := whereClause(criteria)

	query := `SELECT ` + updateColumns + ` FROM update_records WHERE ` + where +
		` ORDER BY commit_time DESC, id ASC`
	if criteria.Paged() {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, criteria.Limit, criteria.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query update records: %w", err)
	}
	defer rows.Close()

	var records []feed.UpdateRecord
	for rows.Next() {
		record, err := scanUpdateRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate update records: %w", err)
	}

	return records, nil
}

func (r *UpdateRepository) Count(ctx context.Context, criteria feed.Criteria) (int, error) {
	where, args := whereClause(criteria)

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM update_records WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count update records: %w", err)
	}

	return count, nil
}

// UpsertRecord inserts a record or replaces the stored one with the same id.
func (r *UpdateRepository) UpsertRecord(ctx context.Context, record feed.UpdateRecord) error {
	if record.ID == "" {
		return fmt.Errorf("update record has no id")
	}

	var weeklyTokens, teamsTitle, teamsText *string
	if record.IsWeekly() {
		weeklyTokens = feed.StringPtr(string(record.GptWeeklySummaryTokens))
	}
	hasTeamsMessage := record.TeamsMessage != nil
	if hasTeamsMessage {
		teamsTitle = record.TeamsMessage.Title
		teamsText = record.TeamsMessage.Text
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO update_records (`+updateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			topic = excluded.topic,
			language = excluded.language,
			commit_time = excluded.commit_time,
			commit_url = excluded.commit_url,
			status = excluded.status,
			gpt_title_response = excluded.gpt_title_response,
			gpt_summary_response = excluded.gpt_summary_response,
			gpt_weekly_summary_tokens = excluded.gpt_weekly_summary_tokens,
			teams_title = excluded.teams_title,
			teams_text = excluded.teams_text,
			has_teams_message = excluded.has_teams_message,
			updated_at = CURRENT_TIMESTAMP
	`, record.ID, record.Topic, record.Language, record.CommitTime, record.CommitURL,
		record.Status, record.GptTitleResponse, record.GptSummaryResponse, weeklyTokens,
		teamsTitle, teamsText, hasTeamsMessage)

	if err != nil {
		return fmt.Errorf("failed to upsert update record %s: %w", record.ID, err)
	}

	return nil
}

func (r *UpdateRepository) GetRecordCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM update_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count update records: %w", err)
	}
	return count, nil
}

func scanUpdateRecord(rows *sql.Rows) (feed.UpdateRecord, error) {
	var record feed.UpdateRecord
	var status, title, summary, weeklyTokens, teamsTitle, teamsText sql.NullString
	var hasTeamsMessage bool

	err := rows.Scan(&record.ID, &record.Topic, &record.Language, &record.CommitTime, &record.CommitURL,
		&status, &title, &summary, &weeklyTokens, &teamsTitle, &teamsText, &hasTeamsMessage)
	if err != nil {
		return record, fmt.Errorf("failed to scan update record: %w", err)
	}

	record.Status = nullStringPtr(status)
	record.GptTitleResponse = nullStringPtr(title)
	record.GptSummaryResponse = nullStringPtr(summary)
	if weeklyTokens.Valid {
		record.GptWeeklySummaryTokens = json.RawMessage(weeklyTokens.String)
	}
	if hasTeamsMessage {
		record.TeamsMessage = &feed.TeamsMessage{
			Title: nullStringPtr(teamsTitle),
			Text:  nullStringPtr(teamsText),
		}
	}

	return record, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

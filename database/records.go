package database

import (
	"context"
	"fmt"

	"github.com/colenew1/Upload-BPO/parser"
)

// CommitResult итог коммита превью: сколько записей вставлено и сколько
// обновлено по совпадению естественного ключа
type CommitResult struct {
	BehaviorInserted int `json:"behavior_inserted"`
	BehaviorUpdated  int `json:"behavior_updated"`
	MetricInserted   int `json:"metric_inserted"`
	MetricUpdated    int `json:"metric_updated"`
}

// UpsertBehaviorRecords сохраняет записи коучинга. Дубликат определяется
// точным совпадением естественного ключа; существующая запись обновляется.
func (sdb *ServiceDB) UpsertBehaviorRecords(ctx context.Context, records []parser.BehaviorRecord) (inserted, updated int, err error) {
	tx, err := sdb.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existsStmt, err := tx.PrepareContext(ctx, `
		SELECT COUNT(1) FROM behavior_records
		WHERE client = ? AND organization = ? AND program = ? AND behavior = ? AND sub_behavior = ? AND month = ? AND year = ?
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare duplicate check: %w", err)
	}
	defer existsStmt.Close()

	upsertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO behavior_records (
			id, client, month, year, source_sheet, source_row_number,
			organization, program, behavior, sub_behavior, supervisor,
			coaching_count, effectiveness, canonical_org, canonical_industry
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client, organization, program, behavior, sub_behavior, month, year) DO UPDATE SET
			source_sheet = excluded.source_sheet,
			source_row_number = excluded.source_row_number,
			supervisor = excluded.supervisor,
			coaching_count = excluded.coaching_count,
			effectiveness = excluded.effectiveness,
			canonical_org = excluded.canonical_org,
			canonical_industry = excluded.canonical_industry,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare behavior upsert: %w", err)
	}
	defer upsertStmt.Close()

	for _, rec := range records {
		var count int
		if err = existsStmt.QueryRowContext(ctx, rec.Client, rec.Organization, rec.Program,
			rec.Behavior, rec.SubBehavior, rec.Month, rec.Year).Scan(&count); err != nil {
			return 0, 0, fmt.Errorf("failed to check behavior duplicate: %w", err)
		}

		if _, err = upsertStmt.ExecContext(ctx,
			rec.ID, rec.Client, rec.Month, rec.Year, rec.SourceSheet, rec.SourceRowNumber,
			rec.Organization, rec.Program, rec.Behavior, rec.SubBehavior, rec.Supervisor,
			rec.CoachingCount, rec.Effectiveness, rec.CanonicalOrg, rec.CanonicalIndustry,
		); err != nil {
			return 0, 0, fmt.Errorf("failed to upsert behavior record: %w", err)
		}

		if count > 0 {
			updated++
		} else {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit behavior records: %w", err)
	}
	return inserted, updated, nil
}

// UpsertMetricRecords сохраняет записи метрик с той же семантикой дубликатов
func (sdb *ServiceDB) UpsertMetricRecords(ctx context.Context, records []parser.MetricRecord) (inserted, updated int, err error) {
	tx, err := sdb.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existsStmt, err := tx.PrepareContext(ctx, `
		SELECT COUNT(1) FROM metric_records
		WHERE client = ? AND organization = ? AND program = ? AND metric = ? AND month = ? AND year = ?
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare duplicate check: %w", err)
	}
	defer existsStmt.Close()

	upsertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_records (
			id, client, month, year, source_sheet, source_row_number,
			organization, program, metric, actual, goal, percent_to_goal,
			canonical_org, canonical_metric, canonical_industry
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client, organization, program, metric, month, year) DO UPDATE SET
			source_sheet = excluded.source_sheet,
			source_row_number = excluded.source_row_number,
			actual = excluded.actual,
			goal = excluded.goal,
			percent_to_goal = excluded.percent_to_goal,
			canonical_org = excluded.canonical_org,
			canonical_metric = excluded.canonical_metric,
			canonical_industry = excluded.canonical_industry,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare metric upsert: %w", err)
	}
	defer upsertStmt.Close()

	for _, rec := range records {
		var count int
		if err = existsStmt.QueryRowContext(ctx, rec.Client, rec.Organization, rec.Program,
			rec.Metric, rec.Month, rec.Year).Scan(&count); err != nil {
			return 0, 0, fmt.Errorf("failed to check metric duplicate: %w", err)
		}

		if _, err = upsertStmt.ExecContext(ctx,
			rec.ID, rec.Client, rec.Month, rec.Year, rec.SourceSheet, rec.SourceRowNumber,
			rec.Organization, rec.Program, rec.Metric, rec.Actual, rec.Goal, rec.PercentToGoal,
			rec.CanonicalOrg, rec.CanonicalMetric, rec.CanonicalIndustry,
		); err != nil {
			return 0, 0, fmt.Errorf("failed to upsert metric record: %w", err)
		}

		if count > 0 {
			updated++
		} else {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit metric records: %w", err)
	}
	return inserted, updated, nil
}

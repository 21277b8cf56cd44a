package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colenew1/Upload-BPO/normalization"
	"github.com/colenew1/Upload-BPO/parser"
)

func newTestDB(t *testing.T) *ServiceDB {
	t.Helper()
	sdb, err := NewServiceDB(filepath.Join(t.TempDir(), "service.db"), DBConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	return sdb
}

// TestAliasRules_CRUD жизненный цикл правила алиаса
func TestAliasRules_CRUD(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	id, err := sdb.CreateAliasRule(ctx, RuleKindMetric, normalization.AliasRule{
		CanonicalValue: "FCR",
		AliasPattern:   "first call resolution",
		MatchType:      normalization.MatchContains,
		Priority:       5,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	rules, err := sdb.ListAliasRules(ctx, RuleKindMetric)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "FCR", rules[0].CanonicalValue)
	assert.Equal(t, normalization.MatchContains, rules[0].MatchType)

	err = sdb.UpdateAliasRule(ctx, RuleKindMetric, id, normalization.AliasRule{
		CanonicalValue: "FCR",
		AliasPattern:   `(?i)first\s*call`,
		MatchType:      normalization.MatchRegex,
		Priority:       10,
		ClientScope:    "acme",
	})
	require.NoError(t, err)

	rules, err = sdb.ListAliasRules(ctx, RuleKindMetric)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, normalization.MatchRegex, rules[0].MatchType)
	assert.Equal(t, 10, rules[0].Priority)
	assert.Equal(t, "acme", rules[0].ClientScope)

	require.NoError(t, sdb.DeleteAliasRule(ctx, RuleKindMetric, id))
	rules, err = sdb.ListAliasRules(ctx, RuleKindMetric)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

// TestAliasRules_NotFound отсутствующее правило распознается по сентинелу
func TestAliasRules_NotFound(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	err := sdb.UpdateAliasRule(ctx, RuleKindMetric, 9999, normalization.AliasRule{
		CanonicalValue: "FCR", AliasPattern: "fcr", MatchType: normalization.MatchExact,
	})
	assert.ErrorIs(t, err, ErrRuleNotFound)

	err = sdb.DeleteAliasRule(ctx, RuleKindMetric, 9999)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

// TestAliasRules_Validation невалидные правила не попадают в хранилище
func TestAliasRules_Validation(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rule normalization.AliasRule
	}{
		{"empty canonical", normalization.AliasRule{AliasPattern: "x", MatchType: normalization.MatchExact}},
		{"empty pattern", normalization.AliasRule{CanonicalValue: "FCR", MatchType: normalization.MatchExact}},
		{"bad match type", normalization.AliasRule{CanonicalValue: "FCR", AliasPattern: "x", MatchType: "fuzzy"}},
		{"broken regex", normalization.AliasRule{CanonicalValue: "FCR", AliasPattern: "[unclosed", MatchType: normalization.MatchRegex}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sdb.CreateAliasRule(ctx, RuleKindMetric, tt.rule)
			assert.Error(t, err)
		})
	}

	rules, err := sdb.ListAliasRules(ctx, RuleKindMetric)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

// TestAliasRules_KindsIsolated правила метрик и индустрий живут раздельно
func TestAliasRules_KindsIsolated(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	_, err := sdb.CreateAliasRule(ctx, RuleKindMetric, normalization.AliasRule{
		CanonicalValue: "FCR", AliasPattern: "fcr", MatchType: normalization.MatchExact,
	})
	require.NoError(t, err)
	_, err = sdb.CreateAliasRule(ctx, RuleKindIndustry, normalization.AliasRule{
		CanonicalValue: "HEALTHCARE", AliasPattern: "clinic", MatchType: normalization.MatchContains,
	})
	require.NoError(t, err)

	metricRules, err := sdb.LoadMetricAliasRules(ctx)
	require.NoError(t, err)
	industryRules, err := sdb.LoadIndustryAliasRules(ctx)
	require.NoError(t, err)

	require.Len(t, metricRules, 1)
	require.Len(t, industryRules, 1)
	assert.Equal(t, "FCR", metricRules[0].CanonicalValue)
	assert.Equal(t, "HEALTHCARE", industryRules[0].CanonicalValue)
}

// TestPreviews_Lifecycle сохранение, чтение и удаление превью-сессии
func TestPreviews_Lifecycle(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	id := uuid.New().String()
	payload := []byte(`{"behavior_records":[]}`)
	summary := []byte(`{"organizations":[]}`)
	require.NoError(t, sdb.SavePreview(ctx, id, "acme", payload, summary, time.Hour))

	session, err := sdb.GetPreview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "acme", session.Client)
	assert.Equal(t, payload, session.Payload)
	assert.Equal(t, summary, session.Summary)
	assert.True(t, session.ExpiresAt.After(time.Now().UTC()))

	require.NoError(t, sdb.DeletePreview(ctx, id))
	_, err = sdb.GetPreview(ctx, id)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

// TestPreviews_Expiry истекшие сессии недоступны и вычищаются
func TestPreviews_Expiry(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	expired := uuid.New().String()
	live := uuid.New().String()
	require.NoError(t, sdb.SavePreview(ctx, expired, "acme", []byte("{}"), []byte("{}"), -time.Minute))
	require.NoError(t, sdb.SavePreview(ctx, live, "acme", []byte("{}"), []byte("{}"), time.Hour))

	_, err := sdb.GetPreview(ctx, expired)
	assert.ErrorIs(t, err, ErrPreviewNotFound)

	purged, err := sdb.PurgeExpiredPreviews(ctx)
	require.NoError(t, err)
	// Ленивая чистка в GetPreview могла уже удалить истекшую сессию
	assert.LessOrEqual(t, purged, int64(1))

	_, err = sdb.GetPreview(ctx, live)
	assert.NoError(t, err)
}

// TestUpsertMetricRecords_DuplicateCounts повторный коммит того же
// естественного ключа считается обновлением
func TestUpsertMetricRecords_DuplicateCounts(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	rec := parser.MetricRecord{
		ID:           uuid.New().String(),
		Client:       "acme",
		Month:        "Jan",
		Year:         2025,
		Organization: "UHC",
		Program:      "Billing",
		Metric:       "FCR",
		CanonicalOrg: "UHC",
	}
	inserted, updated, err := sdb.UpsertMetricRecords(ctx, []parser.MetricRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)

	// Тот же естественный ключ, новый id и новые значения
	rec.ID = uuid.New().String()
	actual := 91.5
	rec.Actual = &actual
	inserted, updated, err = sdb.UpsertMetricRecords(ctx, []parser.MetricRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)

	var count int
	require.NoError(t, sdb.GetDB().QueryRow("SELECT COUNT(1) FROM metric_records").Scan(&count))
	assert.Equal(t, 1, count)

	var stored float64
	require.NoError(t, sdb.GetDB().QueryRow("SELECT actual FROM metric_records").Scan(&stored))
	assert.Equal(t, 91.5, stored)
}

// TestUpsertBehaviorRecords_NaturalKey разные суб-поведения — разные записи
func TestUpsertBehaviorRecords_NaturalKey(t *testing.T) {
	sdb := newTestDB(t)
	ctx := context.Background()

	base := parser.BehaviorRecord{
		Client:       "acme",
		Month:        "Jan",
		Year:         2025,
		Organization: "UHC",
		Program:      "Billing",
		Behavior:     "Empathy",
	}

	first := base
	first.ID = uuid.New().String()
	first.SubBehavior = "Acknowledge"
	second := base
	second.ID = uuid.New().String()
	second.SubBehavior = "Reassure"

	inserted, updated, err := sdb.UpsertBehaviorRecords(ctx, []parser.BehaviorRecord{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, updated)
}

package services

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/colenew1/Upload-BPO/config"
	"github.com/colenew1/Upload-BPO/database"
	"github.com/colenew1/Upload-BPO/normalization"
)

func newTestService(t *testing.T) *UploadService {
	t.Helper()
	sdb, err := database.NewServiceDB(filepath.Join(t.TempDir(), "service.db"), database.DBConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	return NewUploadService(sdb, config.DefaultConfig())
}

// buildTestWorkbook собирает книгу с листом коучинга и листом метрик
func buildTestWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Coaching"))
	coachingRows := [][]interface{}{
		{"Organization", "Program", "Behavior", "Sub-Behavior", "Coaching Count", "Month"},
		{"United Health Group", "Billing", "Empathy", "Acknowledge", 4, "Jan-25"},
		{"Aetna Inc", "Claims", "Clarity", "Summarize", 2, "Feb-25"},
	}
	for i, row := range coachingRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Coaching", cell, &row))
	}

	_, err := f.NewSheet("KPIs")
	require.NoError(t, err)
	kpiRows := [][]interface{}{
		{"Organization", "Program", "Metric", "Actual", "Goal", "PTG", "Month"},
		{"United Health Group", "Billing", "First Call Resolution", "87%", "90%", "96.7%", "Jan-25"},
		{"United Health Group", "ACTIVITY METRICS", "Calls Per Hour", 12, 15, "80%", "Jan-25"},
		{"Cigna", "Claims", "Custom Quality Index", 4.2, 4.5, "93%", "Feb-25"},
	}
	for i, row := range kpiRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("KPIs", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

// TestProcessUpload_EndToEnd полный конвейер: парсинг, нормализация, превью
func TestProcessUpload_EndToEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Динамическое правило клиента должно перекрыть статические таблицы
	_, err := svc.serviceDB.CreateAliasRule(ctx, database.RuleKindMetric, normalization.AliasRule{
		CanonicalValue: "CQI",
		AliasPattern:   "custom quality index",
		MatchType:      normalization.MatchContains,
		ClientScope:    "acme",
	})
	require.NoError(t, err)

	preview, err := svc.ProcessUpload(ctx, buildTestWorkbook(t), UploadOptions{Client: "acme"})
	require.NoError(t, err)
	require.NotEmpty(t, preview.PreviewID)
	assert.Equal(t, "acme", preview.Client)

	assert.Equal(t, "Coaching", preview.Result.SheetAssignment.BehaviorSheet)
	assert.Equal(t, "KPIs", preview.Result.SheetAssignment.MetricSheet)
	require.Len(t, preview.Result.BehaviorRecords, 2)
	require.Len(t, preview.Result.MonthlyMetricRecords, 2)
	require.Len(t, preview.Result.ActivityMetricRecords, 1)

	behavior := preview.Result.BehaviorRecords[0]
	assert.Equal(t, "UHC", behavior.CanonicalOrg)
	assert.Equal(t, "HEALTHCARE", behavior.CanonicalIndustry)
	assert.Equal(t, "Jan", behavior.Month)
	assert.Equal(t, 2025, behavior.Year)

	byMetric := map[string]string{}
	for _, rec := range preview.Result.MonthlyMetricRecords {
		byMetric[rec.Metric] = rec.CanonicalMetric
	}
	assert.Equal(t, "FCR", byMetric["First Call Resolution"])
	assert.Equal(t, "CQI", byMetric["Custom Quality Index"], "client alias rule must win")

	// Сводка содержит реальные преобразования организаций
	require.NotEmpty(t, preview.Summary.Organizations)
	assert.Equal(t, "United Health Group", preview.Summary.Organizations[0].Original)
	assert.Equal(t, "UHC", preview.Summary.Organizations[0].Normalized)
}

// TestProcessUpload_Validation загрузка без клиента и не-xlsx содержимое
func TestProcessUpload_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ProcessUpload(ctx, buildTestWorkbook(t), UploadOptions{})
	assert.Error(t, err, "client is required")

	_, err = svc.ProcessUpload(ctx, bytes.NewBufferString("not a workbook"), UploadOptions{Client: "acme"})
	assert.Error(t, err)
}

// TestCommitPreview коммит превью пишет записи и удаляет сессию
func TestCommitPreview(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	preview, err := svc.ProcessUpload(ctx, buildTestWorkbook(t), UploadOptions{Client: "acme"})
	require.NoError(t, err)

	commit, err := svc.CommitPreview(ctx, preview.PreviewID)
	require.NoError(t, err)
	assert.Equal(t, 2, commit.BehaviorInserted)
	assert.Equal(t, 0, commit.BehaviorUpdated)
	assert.Equal(t, 3, commit.MetricInserted)
	assert.Equal(t, 0, commit.MetricUpdated)

	// Сессия одноразовая
	_, err = svc.GetPreview(ctx, preview.PreviewID)
	assert.Error(t, err)

	// Повторная загрузка той же книги — все записи уже существуют
	preview, err = svc.ProcessUpload(ctx, buildTestWorkbook(t), UploadOptions{Client: "acme"})
	require.NoError(t, err)
	commit, err = svc.CommitPreview(ctx, preview.PreviewID)
	require.NoError(t, err)
	assert.Equal(t, 0, commit.BehaviorInserted)
	assert.Equal(t, 2, commit.BehaviorUpdated)
	assert.Equal(t, 0, commit.MetricInserted)
	assert.Equal(t, 3, commit.MetricUpdated)
}

// TestGetPreview_RoundTrip превью восстанавливается из хранилища без потерь
func TestGetPreview_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.ProcessUpload(ctx, buildTestWorkbook(t), UploadOptions{Client: "acme"})
	require.NoError(t, err)

	loaded, err := svc.GetPreview(ctx, created.PreviewID)
	require.NoError(t, err)
	assert.Equal(t, created.PreviewID, loaded.PreviewID)
	assert.Equal(t, created.Result.SheetAssignment, loaded.Result.SheetAssignment)
	assert.Len(t, loaded.Result.BehaviorRecords, len(created.Result.BehaviorRecords))
	assert.Equal(t, created.Summary.Organizations, loaded.Summary.Organizations)

	_, err = svc.GetPreview(ctx, "missing-id")
	assert.Error(t, err)
}

// TestExportSummary экспорт сводки в поддерживаемых форматах
func TestExportSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	preview, err := svc.ProcessUpload(ctx, buildTestWorkbook(t), UploadOptions{Client: "acme"})
	require.NoError(t, err)

	var jsonBuf bytes.Buffer
	require.NoError(t, svc.ExportSummary(ctx, preview.PreviewID, normalization.FormatJSON, &jsonBuf))
	assert.Contains(t, jsonBuf.String(), `"summary"`)
	assert.Contains(t, jsonBuf.String(), "United Health Group")

	var csvBuf bytes.Buffer
	require.NoError(t, svc.ExportSummary(ctx, preview.PreviewID, normalization.FormatCSV, &csvBuf))
	assert.Contains(t, csvBuf.String(), "Kind,Original,Normalized,Occurrences")

	var excelBuf bytes.Buffer
	require.NoError(t, svc.ExportSummary(ctx, preview.PreviewID, normalization.FormatExcel, &excelBuf))
	assert.NotZero(t, excelBuf.Len())

	err = svc.ExportSummary(ctx, preview.PreviewID, "pdf", &bytes.Buffer{})
	assert.Error(t, err)
}

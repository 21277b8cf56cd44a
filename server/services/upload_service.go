package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/colenew1/Upload-BPO/config"
	"github.com/colenew1/Upload-BPO/database"
	"github.com/colenew1/Upload-BPO/normalization"
	"github.com/colenew1/Upload-BPO/parser"
	apperrors "github.com/colenew1/Upload-BPO/server/errors"
)

// UploadService сервис конвейера загрузки: парсинг книги, превью, коммит
type UploadService struct {
	serviceDB *database.ServiceDB
	cfg       *config.Config
	logger    *slog.Logger
	exporter  *normalization.SummaryExporter
}

// NewUploadService создает новый сервис загрузок
func NewUploadService(serviceDB *database.ServiceDB, cfg *config.Config) *UploadService {
	return &UploadService{
		serviceDB: serviceDB,
		cfg:       cfg,
		logger:    slog.Default().With("component", "upload_service"),
		exporter:  normalization.NewSummaryExporter(),
	}
}

// UploadOptions параметры одной загрузки
type UploadOptions struct {
	Client            string
	BehaviorSheetHint string
	MetricSheetHint   string
}

// PreviewResponse превью результата парсинга для ревью человеком
type PreviewResponse struct {
	PreviewID string                `json:"preview_id"`
	Client    string                `json:"client"`
	Result    parser.ParseResult    `json:"result"`
	Summary   normalization.Summary `json:"summary"`
}

// ProcessUpload разбирает загруженную книгу и сохраняет превью-сессию.
// Отказ загрузки правил алиасов не срывает парсинг: резолюция деградирует
// до статических таблиц.
func (s *UploadService) ProcessUpload(ctx context.Context, r io.Reader, opts UploadOptions) (*PreviewResponse, error) {
	if opts.Client == "" {
		return nil, apperrors.NewValidationError("client is required", nil)
	}

	metricRules, err := s.serviceDB.LoadMetricAliasRules(ctx)
	if err != nil {
		s.logger.Warn("Failed to load metric alias rules, falling back to static tables",
			"client", opts.Client, "error", err)
		metricRules = nil
	}
	industryRules, err := s.serviceDB.LoadIndustryAliasRules(ctx)
	if err != nil {
		s.logger.Warn("Failed to load industry alias rules, falling back to static tables",
			"client", opts.Client, "error", err)
		industryRules = nil
	}

	data, err := parser.DecodeWorkbook(r)
	if err != nil {
		return nil, apperrors.NewValidationError("failed to decode workbook", err)
	}

	tracker := normalization.NewTracker()
	result, err := parser.ParseWorkbook(data, parser.ParseOptions{
		Client:             opts.Client,
		FilterRecentMonths: s.cfg.FilterRecentMonths,
		BehaviorSheetHint:  opts.BehaviorSheetHint,
		MetricSheetHint:    opts.MetricSheetHint,
		Resolvers: parser.Resolvers{
			Metric:   normalization.BuildResolver(metricRules, opts.Client),
			Industry: normalization.BuildResolver(industryRules, opts.Client),
		},
		Tracker: tracker,
	})
	if err != nil {
		return nil, apperrors.NewUnprocessableError("failed to parse workbook", err)
	}

	summary := tracker.Summarize()
	previewID := uuid.New().String()

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to serialize parse result", err)
	}
	summaryPayload, err := json.Marshal(summary)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to serialize summary", err)
	}

	if err := s.serviceDB.SavePreview(ctx, previewID, opts.Client, payload, summaryPayload, s.cfg.PreviewTTL); err != nil {
		return nil, apperrors.NewInternalError("failed to save preview session", err)
	}

	s.logger.Info("Created preview session",
		"preview_id", previewID,
		"client", opts.Client,
		"behavior_records", len(result.BehaviorRecords),
		"monthly_metric_records", len(result.MonthlyMetricRecords),
		"activity_metric_records", len(result.ActivityMetricRecords),
		"issues", len(result.Issues))

	return &PreviewResponse{
		PreviewID: previewID,
		Client:    opts.Client,
		Result:    *result,
		Summary:   summary,
	}, nil
}

// GetPreview возвращает сохраненное превью
func (s *UploadService) GetPreview(ctx context.Context, id string) (*PreviewResponse, error) {
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	var result parser.ParseResult
	if err := json.Unmarshal(session.Payload, &result); err != nil {
		return nil, apperrors.NewInternalError("failed to decode preview payload", err)
	}
	var summary normalization.Summary
	if err := json.Unmarshal(session.Summary, &summary); err != nil {
		return nil, apperrors.NewInternalError("failed to decode preview summary", err)
	}

	return &PreviewResponse{
		PreviewID: session.ID,
		Client:    session.Client,
		Result:    result,
		Summary:   summary,
	}, nil
}

// CommitPreview записывает записи превью в хранилище с upsert-семантикой
// по естественному ключу и удаляет превью-сессию
func (s *UploadService) CommitPreview(ctx context.Context, id string) (*database.CommitResult, error) {
	preview, err := s.GetPreview(ctx, id)
	if err != nil {
		return nil, err
	}

	commit := &database.CommitResult{}

	inserted, updated, err := s.serviceDB.UpsertBehaviorRecords(ctx, preview.Result.BehaviorRecords)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to commit behavior records", err)
	}
	commit.BehaviorInserted, commit.BehaviorUpdated = inserted, updated

	metricRecords := make([]parser.MetricRecord, 0,
		len(preview.Result.MonthlyMetricRecords)+len(preview.Result.ActivityMetricRecords))
	metricRecords = append(metricRecords, preview.Result.MonthlyMetricRecords...)
	metricRecords = append(metricRecords, preview.Result.ActivityMetricRecords...)

	inserted, updated, err = s.serviceDB.UpsertMetricRecords(ctx, metricRecords)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to commit metric records", err)
	}
	commit.MetricInserted, commit.MetricUpdated = inserted, updated

	if err := s.serviceDB.DeletePreview(ctx, id); err != nil {
		s.logger.Warn("Failed to delete committed preview session", "preview_id", id, "error", err)
	}

	s.logger.Info("Committed preview session",
		"preview_id", id,
		"client", preview.Client,
		"behavior_inserted", commit.BehaviorInserted,
		"behavior_updated", commit.BehaviorUpdated,
		"metric_inserted", commit.MetricInserted,
		"metric_updated", commit.MetricUpdated)

	return commit, nil
}

// ExportSummary выгружает сводку нормализации превью в указанном формате
func (s *UploadService) ExportSummary(ctx context.Context, id string, format normalization.ExportFormat, w io.Writer) error {
	preview, err := s.GetPreview(ctx, id)
	if err != nil {
		return err
	}
	if err := s.exporter.Export(w, preview.Summary, format); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to export summary as %s", format), err)
	}
	return nil
}

func (s *UploadService) loadSession(ctx context.Context, id string) (*database.PreviewSession, error) {
	session, err := s.serviceDB.GetPreview(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrPreviewNotFound) {
			return nil, apperrors.NewNotFoundError("preview session not found or expired", err)
		}
		return nil, apperrors.NewInternalError("failed to load preview session", err)
	}
	return session, nil
}

package parser

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/colenew1/Upload-BPO/normalization"
)

// minPeriodAgeDays минимальный возраст конца месяца для принятия строки
// при включенном фильтре свежих периодов
const minPeriodAgeDays = 9

// activityProgramSentinel зарезервированное значение program, отделяющее
// метрики активности от месячных метрик. Сравнение чувствительно к регистру.
const activityProgramSentinel = "ACTIVITY METRICS"

// IsActivityProgram бизнес-правило разделения записей метрик на подмножества
// "activity" и "monthly". Вынесено в именованный предикат, так как правило
// может поменяться.
func IsActivityProgram(program string) bool {
	return program == activityProgramSentinel
}

// DatasetStats счетчики строк одного датасета за один прогон парсера.
// Инвариант: TotalRows == AcceptedRows + FilteredMissingData + FilteredTooRecent.
type DatasetStats struct {
	TotalRows           int `json:"total_rows"`
	AcceptedRows        int `json:"accepted_rows"`
	FilteredMissingData int `json:"filtered_missing_data"`
	FilteredTooRecent   int `json:"filtered_too_recent"`
}

// BehaviorRecord нормализованная строка данных коучинга
type BehaviorRecord struct {
	ID                string   `json:"id"`
	Client            string   `json:"client"`
	Month             string   `json:"month"`
	Year              int      `json:"year"`
	SourceSheet       string   `json:"source_sheet"`
	SourceRowNumber   int      `json:"source_row_number"`
	Organization      string   `json:"organization"`
	Program           string   `json:"program"`
	Behavior          string   `json:"behavior"`
	SubBehavior       string   `json:"sub_behavior"`
	Supervisor        string   `json:"supervisor"`
	CoachingCount     *float64 `json:"coaching_count"`
	Effectiveness     *float64 `json:"effectiveness"`
	CanonicalOrg      string   `json:"canonical_org"`
	CanonicalMetric   string   `json:"canonical_metric"`
	CanonicalIndustry string   `json:"canonical_industry"`

	// Исходная строка, сохраняется как есть и никогда не перепарсивается.
	// Не попадает во внешние сводки.
	raw map[string]any
}

// RawRow возвращает исходную строку записи
func (r *BehaviorRecord) RawRow() map[string]any { return r.raw }

// MetricRecord нормализованная строка данных KPI
type MetricRecord struct {
	ID                string   `json:"id"`
	Client            string   `json:"client"`
	Month             string   `json:"month"`
	Year              int      `json:"year"`
	SourceSheet       string   `json:"source_sheet"`
	SourceRowNumber   int      `json:"source_row_number"`
	Organization      string   `json:"organization"`
	Program           string   `json:"program"`
	Metric            string   `json:"metric"`
	Actual            *float64 `json:"actual"`
	Goal              *float64 `json:"goal"`
	PercentToGoal     *float64 `json:"percent_to_goal"`
	CanonicalOrg      string   `json:"canonical_org"`
	CanonicalMetric   string   `json:"canonical_metric"`
	CanonicalIndustry string   `json:"canonical_industry"`

	raw map[string]any
}

// RawRow возвращает исходную строку записи
func (r *MetricRecord) RawRow() map[string]any { return r.raw }

// Resolvers динамические резолверы сессии, передаются явно вместо
// глобальных привязок
type Resolvers struct {
	Metric   normalization.Resolver
	Industry normalization.Resolver
}

// resolveMetric композиция: динамическое правило всегда побеждает статический фоллбэк
func (rs Resolvers) resolveMetric(raw string) string {
	if rs.Metric != nil {
		if canonical := rs.Metric(raw); canonical != "" {
			return canonical
		}
	}
	return normalization.DeriveCanonicalMetric(raw)
}

// resolveIndustry индустрия определяется по названию организации
func (rs Resolvers) resolveIndustry(org string) string {
	if rs.Industry != nil {
		if canonical := rs.Industry(org); canonical != "" {
			return canonical
		}
	}
	return normalization.DeriveCanonicalIndustry(org)
}

// transformContext состояние одной сессии парсинга, протягивается явно
// через трансформеры: никакого глобального изменяемого состояния
type transformContext struct {
	client             string
	today              time.Time
	filterRecentMonths bool
	resolvers          Resolvers
	tracker            *normalization.Tracker
	logger             *slog.Logger
}

// transformBehaviorRow прогоняет одну строку листа коучинга через конвейер.
// Возвращает nil, если строка отфильтрована; причина учтена в stats.
func transformBehaviorRow(row map[string]any, sheetName string, rowNumber int, stats *DatasetStats, ctx *transformContext) *BehaviorRecord {
	stats.TotalRows++

	a := NewRowAccessor(row)

	period := ParsePeriod(a.Get("period"))
	if !period.Valid() {
		stats.FilteredMissingData++
		return nil
	}

	if ctx.filterRecentMonths && !periodOldEnough(period, ctx.today, minPeriodAgeDays) {
		stats.FilteredTooRecent++
		return nil
	}

	organization := a.GetString("organization")
	program := a.GetString("program")
	if organization == "" || program == "" {
		stats.FilteredMissingData++
		return nil
	}

	canonicalOrg := normalization.DeriveCanonicalOrg(organization)
	canonicalIndustry := ctx.resolvers.resolveIndustry(organization)

	ctx.tracker.RecordNormalization(normalization.TrackOrganization, organization, canonicalOrg)
	ctx.tracker.RecordUnmatchedOrg(organization, canonicalOrg)
	if canonicalIndustry != "" {
		ctx.tracker.RecordNormalization(normalization.TrackIndustry, organization, canonicalIndustry)
	}

	stats.AcceptedRows++
	return &BehaviorRecord{
		ID:                uuid.New().String(),
		Client:            ctx.client,
		Month:             period.Month,
		Year:              period.Year,
		SourceSheet:       sheetName,
		SourceRowNumber:   rowNumber,
		Organization:      organization,
		Program:           program,
		Behavior:          a.GetString("behavior"),
		SubBehavior:       a.GetString("sub_behavior"),
		Supervisor:        a.GetString("supervisor"),
		CoachingCount:     CoerceNumeric(a.Get("coaching_count")),
		Effectiveness:     CoerceNumeric(a.Get("effectiveness")),
		CanonicalOrg:      canonicalOrg,
		CanonicalIndustry: canonicalIndustry,
		raw:               row,
	}
}

// transformMetricRow прогоняет одну строку листа метрик через конвейер
func transformMetricRow(row map[string]any, sheetName string, rowNumber int, stats *DatasetStats, ctx *transformContext) *MetricRecord {
	stats.TotalRows++

	a := NewRowAccessor(row)

	period := ParsePeriod(a.Get("period"))
	if !period.Valid() {
		stats.FilteredMissingData++
		return nil
	}

	if ctx.filterRecentMonths && !periodOldEnough(period, ctx.today, minPeriodAgeDays) {
		stats.FilteredTooRecent++
		return nil
	}

	organization := a.GetString("organization")
	program := a.GetString("program")
	metric := a.GetString("metric")
	if organization == "" || program == "" || metric == "" {
		stats.FilteredMissingData++
		return nil
	}

	canonicalOrg := normalization.DeriveCanonicalOrg(organization)
	canonicalMetric := ctx.resolvers.resolveMetric(metric)
	canonicalIndustry := ctx.resolvers.resolveIndustry(organization)

	ctx.tracker.RecordNormalization(normalization.TrackOrganization, organization, canonicalOrg)
	ctx.tracker.RecordNormalization(normalization.TrackMetric, metric, canonicalMetric)
	ctx.tracker.RecordUnmatchedOrg(organization, canonicalOrg)
	ctx.tracker.RecordUnmatchedMetric(metric, canonicalMetric)
	if canonicalIndustry != "" {
		ctx.tracker.RecordNormalization(normalization.TrackIndustry, organization, canonicalIndustry)
	}

	stats.AcceptedRows++
	return &MetricRecord{
		ID:                uuid.New().String(),
		Client:            ctx.client,
		Month:             period.Month,
		Year:              period.Year,
		SourceSheet:       sheetName,
		SourceRowNumber:   rowNumber,
		Organization:      organization,
		Program:           program,
		Metric:            metric,
		Actual:            CoerceNumeric(a.Get("actual")),
		Goal:              CoerceNumeric(a.Get("goal")),
		PercentToGoal:     CoerceNumeric(a.Get("ptg")),
		CanonicalOrg:      canonicalOrg,
		CanonicalMetric:   canonicalMetric,
		CanonicalIndustry: canonicalIndustry,
		raw:               row,
	}
}

package parser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/colenew1/Upload-BPO/normalization"
)

// SheetRow одна декодированная строка листа. Number — физический 1-based
// номер строки в исходном файле: пустые строки при декодировании
// пропускаются, но нумерация остальных не сдвигается.
type SheetRow struct {
	Number int
	Cells  map[string]any
}

// SheetData один лист книги: имя и уже декодированные строки в порядке файла
type SheetData struct {
	Name string
	Rows []SheetRow
}

// WorkbookData вся книга: листы в порядке файла
type WorkbookData struct {
	Sheets []SheetData
}

// SheetAssignment какие листы назначены на какие роли
type SheetAssignment struct {
	BehaviorSheet string `json:"behavior_sheet"`
	MetricSheet   string `json:"metric_sheet"`
}

// ParseOptions параметры одной сессии парсинга. Резолверы и трекер
// передаются явно, а не через разделяемые привязки.
type ParseOptions struct {
	Client             string
	Today              time.Time
	FilterRecentMonths bool
	BehaviorSheetHint  string // имя листа, если автоопределение не нужно
	MetricSheetHint    string
	Resolvers          Resolvers
	Tracker            *normalization.Tracker
}

// ParseResult результат разбора одной книги
type ParseResult struct {
	BehaviorRecords       []BehaviorRecord `json:"behavior_records"`
	MonthlyMetricRecords  []MetricRecord   `json:"monthly_metric_records"`
	ActivityMetricRecords []MetricRecord   `json:"activity_metric_records"`
	BehaviorStats         DatasetStats     `json:"behavior_stats"`
	MetricStats           DatasetStats     `json:"metric_stats"`
	SheetAssignment       SheetAssignment  `json:"sheet_assignment"`
	Issues                []string         `json:"issues"`
}

// ParseWorkbook разбирает книгу: назначает листы на роли, прогоняет строки
// через трансформеры и собирает статистику и список проблем.
// Структурные проблемы (нет листов, подсказка указывает на несуществующий
// лист) — жесткая ошибка без частичного результата; все построчные потери
// учитываются в статистике и Issues.
func ParseWorkbook(data WorkbookData, opts ParseOptions) (*ParseResult, error) {
	logger := slog.Default().With("component", "workbook_parser")

	if len(data.Sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}
	if opts.Tracker == nil {
		opts.Tracker = normalization.NewTracker()
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now().UTC()
	}

	assignment, err := assignSheets(data, opts.BehaviorSheetHint, opts.MetricSheetHint)
	if err != nil {
		return nil, err
	}

	logger.Info("Assigned workbook sheets",
		"client", opts.Client,
		"behavior_sheet", assignment.BehaviorSheet,
		"metric_sheet", assignment.MetricSheet)

	ctx := &transformContext{
		client:             opts.Client,
		today:              opts.Today,
		filterRecentMonths: opts.FilterRecentMonths,
		resolvers:          opts.Resolvers,
		tracker:            opts.Tracker,
		logger:             logger,
	}

	result := &ParseResult{
		BehaviorRecords:       []BehaviorRecord{},
		MonthlyMetricRecords:  []MetricRecord{},
		ActivityMetricRecords: []MetricRecord{},
		SheetAssignment:       assignment,
		Issues:                []string{},
	}

	if assignment.BehaviorSheet == "" {
		result.Issues = append(result.Issues, "no sheet matched behavior-data shape")
	} else {
		rows := sheetRows(data, assignment.BehaviorSheet)
		for _, row := range rows {
			if rec := transformBehaviorRow(row.Cells, assignment.BehaviorSheet, row.Number, &result.BehaviorStats, ctx); rec != nil {
				result.BehaviorRecords = append(result.BehaviorRecords, *rec)
			}
		}
	}

	if assignment.MetricSheet == "" {
		result.Issues = append(result.Issues, "no sheet matched metric-data shape")
	} else {
		rows := sheetRows(data, assignment.MetricSheet)
		for _, row := range rows {
			rec := transformMetricRow(row.Cells, assignment.MetricSheet, row.Number, &result.MetricStats, ctx)
			if rec == nil {
				continue
			}
			if IsActivityProgram(rec.Program) {
				result.ActivityMetricRecords = append(result.ActivityMetricRecords, *rec)
			} else {
				result.MonthlyMetricRecords = append(result.MonthlyMetricRecords, *rec)
			}
		}
	}

	result.Issues = append(result.Issues, statsIssues("behavior", result.BehaviorStats)...)
	result.Issues = append(result.Issues, statsIssues("metric", result.MetricStats)...)

	logger.Info("Parsed workbook",
		"client", opts.Client,
		"behavior_accepted", result.BehaviorStats.AcceptedRows,
		"metric_accepted", result.MetricStats.AcceptedRows,
		"issues", len(result.Issues))

	return result, nil
}

// assignSheets назначает листы на роли. Подсказки имеют приоритет и обязаны
// существовать. Автоопределение жадное, первый подходящий лист в порядке
// файла: на неоднозначных книгах поведение зависит от порядка листов, это
// документированное поведение.
func assignSheets(data WorkbookData, behaviorHint, metricHint string) (SheetAssignment, error) {
	assignment := SheetAssignment{}

	if behaviorHint != "" {
		if !sheetExists(data, behaviorHint) {
			return assignment, fmt.Errorf("behavior sheet %q not found in workbook", behaviorHint)
		}
		assignment.BehaviorSheet = behaviorHint
	}
	if metricHint != "" {
		if !sheetExists(data, metricHint) {
			return assignment, fmt.Errorf("metric sheet %q not found in workbook", metricHint)
		}
		assignment.MetricSheet = metricHint
	}

	for _, sheet := range data.Sheets {
		if assignment.BehaviorSheet != "" && assignment.MetricSheet != "" {
			break
		}
		if len(sheet.Rows) == 0 {
			continue
		}
		firstRow := sheet.Rows[0].Cells
		if assignment.BehaviorSheet == "" && sheet.Name != assignment.MetricSheet && LooksLikeBehaviorSheet(firstRow) {
			assignment.BehaviorSheet = sheet.Name
			continue
		}
		if assignment.MetricSheet == "" && sheet.Name != assignment.BehaviorSheet && LooksLikeMetricSheet(firstRow) {
			assignment.MetricSheet = sheet.Name
		}
	}

	return assignment, nil
}

func sheetExists(data WorkbookData, name string) bool {
	for _, s := range data.Sheets {
		if s.Name == name {
			return true
		}
	}
	return false
}

func sheetRows(data WorkbookData, name string) []SheetRow {
	for _, s := range data.Sheets {
		if s.Name == name {
			return s.Rows
		}
	}
	return nil
}

// statsIssues превращает счетчики потерь в человекочитаемые диагностики
func statsIssues(dataset string, stats DatasetStats) []string {
	issues := []string{}
	if stats.FilteredMissingData > 0 {
		issues = append(issues, fmt.Sprintf("%d %s rows filtered: missing organization/program/period", stats.FilteredMissingData, dataset))
	}
	if stats.FilteredTooRecent > 0 {
		issues = append(issues, fmt.Sprintf("%d %s rows filtered: period too recent", stats.FilteredTooRecent, dataset))
	}
	return issues
}

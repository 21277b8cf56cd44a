package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Таблица групп алиасов колонок: каноническое имя -> принимаемые написания
// в порядке предпочтения. Таблица данных, а не логика: новые написания
// заголовков добавляются сюда, код доступа не меняется.
var columnAliasGroups = map[string][]string{
	"organization": {"organization", "org", "organisation", "client org", "client_org", "company", "account"},
	"program":      {"program", "programme", "program name", "lob", "line of business", "team"},
	"behavior":     {"behavior", "behaviour", "coaching behavior", "behavior name"},
	"sub_behavior": {"sub-behavior", "sub behavior", "subbehavior", "sub-behaviour", "sub behaviour"},
	"metric":       {"metric", "metric name", "kpi", "kpi name", "measure"},
	"actual":       {"actual", "actuals", "actual value", "result"},
	"goal":         {"goal", "target", "plan"},
	"ptg":          {"ptg", "% to goal", "percent to goal", "pct to goal", "attainment"},
	"coaching_count": {
		"coaching count", "coachings", "coaching sessions", "sessions", "# coached", "coached",
	},
	"effectiveness": {"effectiveness", "effectiveness %", "coaching effectiveness", "effective %"},
	"period":        {"month", "period", "date", "month/year", "reporting month"},
	"supervisor":    {"supervisor", "coach", "manager"},
	"site":          {"site", "location", "center"},
}

var keyWhitespaceRegex = regexp.MustCompile(`\s+`)

// normalizeColumnKey приводит заголовок колонки к ключу индекса
func normalizeColumnKey(key string) string {
	return strings.ToLower(strings.TrimSpace(keyWhitespaceRegex.ReplaceAllString(key, " ")))
}

// RowAccessor доступ к значениям строки по каноническим именам колонок.
// Индекс ключей строится один раз на строку, без учета регистра и лишних пробелов.
type RowAccessor struct {
	index map[string]any
	keys  []string
}

// NewRowAccessor строит аксессор по строке с произвольными заголовками
func NewRowAccessor(row map[string]any) *RowAccessor {
	a := &RowAccessor{
		index: make(map[string]any, len(row)),
		keys:  make([]string, 0, len(row)),
	}
	for k, v := range row {
		nk := normalizeColumnKey(k)
		if nk == "" {
			continue
		}
		if _, exists := a.index[nk]; !exists {
			a.index[nk] = v
			a.keys = append(a.keys, nk)
		}
	}
	return a
}

// Get возвращает первое присутствующее непустое значение среди:
// алиасов канонического имени, самого имени, затем дополнительных алиасов
// вызывающего. Порядок важен и сохраняется точно.
func (a *RowAccessor) Get(canonicalName string, extraAliases ...string) any {
	candidates := make([]string, 0, len(columnAliasGroups[canonicalName])+1+len(extraAliases))
	candidates = append(candidates, columnAliasGroups[canonicalName]...)
	candidates = append(candidates, canonicalName)
	candidates = append(candidates, extraAliases...)

	for _, name := range candidates {
		v, ok := a.index[normalizeColumnKey(name)]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

// GetString как Get, но со строковым представлением результата
func (a *RowAccessor) GetString(canonicalName string, extraAliases ...string) string {
	v := a.Get(canonicalName, extraAliases...)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(stringifyCell(v))
}

// HasAny проверяет присутствие хотя бы одного из перечисленных заголовков
func (a *RowAccessor) HasAny(names ...string) bool {
	for _, name := range names {
		if _, ok := a.index[normalizeColumnKey(name)]; ok {
			return true
		}
	}
	return false
}

// HasAnyCanonical проверяет присутствие любого алиаса перечисленных канонических колонок
func (a *RowAccessor) HasAnyCanonical(canonicalNames ...string) bool {
	for _, canonical := range canonicalNames {
		if a.HasAny(columnAliasGroups[canonical]...) || a.HasAny(canonical) {
			return true
		}
	}
	return false
}

// Keys возвращает нормализованные ключи строки
func (a *RowAccessor) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// LooksLikeBehaviorSheet классифицирует лист как данные коучинга по первой
// строке: достаточно любой колонки поведения или суб-поведения.
func LooksLikeBehaviorSheet(firstRow map[string]any) bool {
	return NewRowAccessor(firstRow).HasAnyCanonical("behavior", "sub_behavior")
}

// LooksLikeMetricSheet классифицирует лист как данные метрик: есть колонка
// actual/goal/ptg и нет колонок поведения. Взаимоисключение намеренное —
// лист с обеими группами считается листом поведения, это более специфичный сигнал.
func LooksLikeMetricSheet(firstRow map[string]any) bool {
	a := NewRowAccessor(firstRow)
	if a.HasAnyCanonical("behavior", "sub_behavior") {
		return false
	}
	return a.HasAnyCanonical("actual", "goal", "ptg")
}

// stringifyCell приводит значение ячейки к строке
func stringifyCell(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", c), "0"), ".")
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprintf("%v", c)
	}
}

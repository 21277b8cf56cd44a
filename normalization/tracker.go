package normalization

import (
	"sort"
	"strings"
	"sync"
)

// TrackKind категория нормализации для трекера
type TrackKind string

const (
	TrackOrganization TrackKind = "organization"
	TrackMetric       TrackKind = "metric"
	TrackIndustry     TrackKind = "industry"
)

// NormalizationChange одно примененное преобразование с счетчиком вхождений
type NormalizationChange struct {
	Original        string `json:"original"`
	Normalized      string `json:"normalized"`
	OccurrenceCount int    `json:"occurrence_count"`
}

// UnmatchedValue значение, для которого не нашлось ни одного реального правила
type UnmatchedValue struct {
	Name            string `json:"name"`
	OccurrenceCount int    `json:"occurrence_count"`
}

// Summary агрегат трекера для ревью человеком
type Summary struct {
	Organizations          []NormalizationChange `json:"organizations"`
	Metrics                []NormalizationChange `json:"metrics"`
	Industries             []NormalizationChange `json:"industries"`
	UnmatchedOrganizations []UnmatchedValue      `json:"unmatched_organizations"`
	UnmatchedMetrics       []UnmatchedValue      `json:"unmatched_metrics"`
}

// trackedChange внутреннее состояние одного преобразования
type trackedChange struct {
	original   string // написание первого вхождения
	normalized string
	count      int
}

// Tracker аккумулятор нормализаций одной сессии парсинга.
// Создается фабрикой на каждую сессию и передается явно по цепочке вызовов;
// никогда не является общим глобальным состоянием процесса.
type Tracker struct {
	mu               sync.Mutex
	changes          map[TrackKind]map[string]*trackedChange
	unmatchedOrgs    map[string]*trackedChange
	unmatchedMetrics map[string]*trackedChange
}

// NewTracker создает пустой трекер для новой сессии парсинга
func NewTracker() *Tracker {
	return &Tracker{
		changes: map[TrackKind]map[string]*trackedChange{
			TrackOrganization: {},
			TrackMetric:       {},
			TrackIndustry:     {},
		},
		unmatchedOrgs:    map[string]*trackedChange{},
		unmatchedMetrics: map[string]*trackedChange{},
	}
}

// RecordNormalization запоминает пару (original -> normalized).
// Пустые значения игнорируются. Ключом служит original без учета регистра,
// отображаемым написанием остается первое встреченное.
func (t *Tracker) RecordNormalization(kind TrackKind, original, normalized string) {
	original = strings.TrimSpace(original)
	normalized = strings.TrimSpace(normalized)
	if original == "" || normalized == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket, ok := t.changes[kind]
	if !ok {
		return
	}
	record(bucket, original, normalized)
}

// RecordUnmatchedOrg запоминает организацию без реального мэппинга.
// Организация считается несматченной, только если ее каноническая форма
// совпадает с тривиальным UppercaseCollapse-преобразованием — то есть
// сработал только фоллбэк по умолчанию, а не словарь.
func (t *Tracker) RecordUnmatchedOrg(org, canonicalGuess string) {
	org = strings.TrimSpace(org)
	if org == "" || canonicalGuess != UppercaseCollapse(org) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	record(t.unmatchedOrgs, org, canonicalGuess)
}

// RecordUnmatchedMetric запоминает метрику без реального мэппинга (то же правило)
func (t *Tracker) RecordUnmatchedMetric(metric, canonicalGuess string) {
	metric = strings.TrimSpace(metric)
	if metric == "" || canonicalGuess != UppercaseCollapse(metric) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	record(t.unmatchedMetrics, metric, canonicalGuess)
}

func record(bucket map[string]*trackedChange, original, normalized string) {
	key := strings.ToLower(original)
	if existing, ok := bucket[key]; ok {
		existing.count++
		return
	}
	bucket[key] = &trackedChange{original: original, normalized: normalized, count: 1}
}

// Summarize выгружает агрегат и очищает состояние трекера.
// В списки нормализаций попадают только реально измененные значения
// (original != normalized без учета регистра).
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := Summary{
		Organizations:          collectChanges(t.changes[TrackOrganization]),
		Metrics:                collectChanges(t.changes[TrackMetric]),
		Industries:             collectChanges(t.changes[TrackIndustry]),
		UnmatchedOrganizations: collectUnmatched(t.unmatchedOrgs),
		UnmatchedMetrics:       collectUnmatched(t.unmatchedMetrics),
	}

	t.changes = map[TrackKind]map[string]*trackedChange{
		TrackOrganization: {},
		TrackMetric:       {},
		TrackIndustry:     {},
	}
	t.unmatchedOrgs = map[string]*trackedChange{}
	t.unmatchedMetrics = map[string]*trackedChange{}

	return summary
}

func collectChanges(bucket map[string]*trackedChange) []NormalizationChange {
	out := make([]NormalizationChange, 0, len(bucket))
	for _, c := range bucket {
		if strings.EqualFold(c.original, c.normalized) {
			continue
		}
		out = append(out, NormalizationChange{
			Original:        c.original,
			Normalized:      c.normalized,
			OccurrenceCount: c.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurrenceCount != out[j].OccurrenceCount {
			return out[i].OccurrenceCount > out[j].OccurrenceCount
		}
		return out[i].Original < out[j].Original
	})
	return out
}

func collectUnmatched(bucket map[string]*trackedChange) []UnmatchedValue {
	out := make([]UnmatchedValue, 0, len(bucket))
	for _, c := range bucket {
		out = append(out, UnmatchedValue{Name: c.original, OccurrenceCount: c.count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurrenceCount != out[j].OccurrenceCount {
			return out[i].OccurrenceCount > out[j].OccurrenceCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

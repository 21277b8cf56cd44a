package normalization

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// MatchType тип сопоставления правила алиаса
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// ValidMatchType проверяет, является ли значение допустимым типом сопоставления
func ValidMatchType(mt MatchType) bool {
	switch mt {
	case MatchExact, MatchContains, MatchRegex:
		return true
	}
	return false
}

// AliasRule правило мэппинга сырого значения на каноническое
type AliasRule struct {
	CanonicalValue string    `json:"canonical_value"`
	AliasPattern   string    `json:"alias_pattern"`
	MatchType      MatchType `json:"match_type"`
	CaseSensitive  bool      `json:"case_sensitive"`
	Priority       int       `json:"priority"`
	ClientScope    string    `json:"client_scope"` // пустая строка = глобальное правило
}

// Resolver скомпилированный матчер для одной сессии парсинга.
// Возвращает каноническое значение или пустую строку, если ни одно правило не сработало.
type Resolver func(raw any) string

// MaxAliasPatternLength предел длины пользовательского regex-паттерна
const MaxAliasPatternLength = 512

// compiledRule правило с предкомпилированным regex (для MatchRegex)
type compiledRule struct {
	rule AliasRule
	re   *regexp.Regexp
}

// BuildResolver строит упорядоченный матчер из набора правил для указанного клиента.
// Правила, привязанные к другому клиенту, исключаются полностью. Правила текущего
// клиента всегда проверяются раньше глобальных, внутри уровня — по убыванию priority,
// при равенстве сохраняется исходный порядок хранилища.
func BuildResolver(rules []AliasRule, clientTag string) Resolver {
	logger := slog.Default().With("component", "resolver")

	eligible := make([]AliasRule, 0, len(rules))
	for _, r := range rules {
		if r.ClientScope != "" && r.ClientScope != clientTag {
			continue
		}
		eligible = append(eligible, r)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		ti, tj := clientMatchTier(eligible[i], clientTag), clientMatchTier(eligible[j], clientTag)
		if ti != tj {
			return ti > tj
		}
		return eligible[i].Priority > eligible[j].Priority
	})

	compiled := make([]compiledRule, 0, len(eligible))
	for _, r := range eligible {
		cr := compiledRule{rule: r}
		if r.MatchType == MatchRegex {
			re, err := compileAliasPattern(r.AliasPattern, r.CaseSensitive)
			if err != nil {
				logger.Warn("Skipping alias rule with invalid regex",
					"pattern", r.AliasPattern,
					"canonical_value", r.CanonicalValue,
					"error", err)
				continue
			}
			cr.re = re
		}
		compiled = append(compiled, cr)
	}

	return func(raw any) string {
		value := strings.TrimSpace(stringifyValue(raw))
		if value == "" {
			return ""
		}
		for _, cr := range compiled {
			if matchRule(cr, value) {
				return cr.rule.CanonicalValue
			}
		}
		return ""
	}
}

// clientMatchTier возвращает уровень приоритета правила для данного клиента
func clientMatchTier(r AliasRule, clientTag string) int {
	if r.ClientScope != "" && r.ClientScope == clientTag {
		return 2
	}
	return 0
}

// compileAliasPattern компилирует пользовательский паттерн с защитой по длине
func compileAliasPattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if len(pattern) > MaxAliasPatternLength {
		return nil, fmt.Errorf("pattern exceeds %d bytes", MaxAliasPatternLength)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// matchRule проверяет значение против одного правила
func matchRule(cr compiledRule, value string) bool {
	r := cr.rule
	switch r.MatchType {
	case MatchExact:
		if r.CaseSensitive {
			return value == r.AliasPattern
		}
		return strings.EqualFold(value, r.AliasPattern)
	case MatchContains:
		if r.CaseSensitive {
			return strings.Contains(value, r.AliasPattern)
		}
		return strings.Contains(strings.ToLower(value), strings.ToLower(r.AliasPattern))
	case MatchRegex:
		return cr.re != nil && cr.re.MatchString(value)
	}
	return false
}

// stringifyValue приводит значение ячейки к строке
func stringifyValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	default:
		return fmt.Sprintf("%v", v)
	}
}

package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/colenew1/Upload-BPO/normalization"
)

// ErrRuleNotFound правило с указанным идентификатором отсутствует
var ErrRuleNotFound = errors.New("alias rule not found")

// RuleKind вид правил алиасов
type RuleKind string

const (
	RuleKindMetric   RuleKind = "metric"
	RuleKindIndustry RuleKind = "industry"
)

// ValidRuleKind проверяет допустимость вида правил
func ValidRuleKind(kind RuleKind) bool {
	return kind == RuleKindMetric || kind == RuleKindIndustry
}

// AliasRuleRecord хранимое правило с идентификатором
type AliasRuleRecord struct {
	ID int64 `json:"id"`
	normalization.AliasRule
}

func ruleTable(kind RuleKind) (string, error) {
	switch kind {
	case RuleKindMetric:
		return "metric_alias_rules", nil
	case RuleKindIndustry:
		return "industry_alias_rules", nil
	}
	return "", fmt.Errorf("unknown rule kind: %s", kind)
}

// validateRule проверяет правило перед сохранением. Regex-паттерны
// компилируются здесь же, чтобы невалидный паттерн не попал в хранилище.
func validateRule(rule normalization.AliasRule) error {
	if rule.CanonicalValue == "" {
		return fmt.Errorf("canonical_value is required")
	}
	if rule.AliasPattern == "" {
		return fmt.Errorf("alias_pattern is required")
	}
	if !normalization.ValidMatchType(rule.MatchType) {
		return fmt.Errorf("invalid match_type: %s", rule.MatchType)
	}
	if rule.MatchType == normalization.MatchRegex {
		if len(rule.AliasPattern) > normalization.MaxAliasPatternLength {
			return fmt.Errorf("alias_pattern exceeds %d bytes", normalization.MaxAliasPatternLength)
		}
		if _, err := regexp.Compile(rule.AliasPattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
	}
	return nil
}

// CreateAliasRule сохраняет новое правило и возвращает его идентификатор
func (sdb *ServiceDB) CreateAliasRule(ctx context.Context, kind RuleKind, rule normalization.AliasRule) (int64, error) {
	table, err := ruleTable(kind)
	if err != nil {
		return 0, err
	}
	if err := validateRule(rule); err != nil {
		return 0, fmt.Errorf("invalid alias rule: %w", err)
	}

	res, err := sdb.conn.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (canonical_value, alias_pattern, match_type, case_sensitive, priority, client_scope)
		VALUES (?, ?, ?, ?, ?, ?)
	`, table), rule.CanonicalValue, rule.AliasPattern, string(rule.MatchType), rule.CaseSensitive, rule.Priority, rule.ClientScope)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alias rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get alias rule id: %w", err)
	}
	return id, nil
}

// UpdateAliasRule обновляет существующее правило
func (sdb *ServiceDB) UpdateAliasRule(ctx context.Context, kind RuleKind, id int64, rule normalization.AliasRule) error {
	table, err := ruleTable(kind)
	if err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return fmt.Errorf("invalid alias rule: %w", err)
	}

	res, err := sdb.conn.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET canonical_value = ?, alias_pattern = ?, match_type = ?, case_sensitive = ?,
		    priority = ?, client_scope = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, table), rule.CanonicalValue, rule.AliasPattern, string(rule.MatchType), rule.CaseSensitive, rule.Priority, rule.ClientScope, id)
	if err != nil {
		return fmt.Errorf("failed to update alias rule %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alias rule %d: %w", id, ErrRuleNotFound)
	}
	return nil
}

// DeleteAliasRule удаляет правило
func (sdb *ServiceDB) DeleteAliasRule(ctx context.Context, kind RuleKind, id int64) error {
	table, err := ruleTable(kind)
	if err != nil {
		return err
	}

	res, err := sdb.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete alias rule %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alias rule %d: %w", id, ErrRuleNotFound)
	}
	return nil
}

// ListAliasRules возвращает правила с идентификаторами в порядке хранилища
func (sdb *ServiceDB) ListAliasRules(ctx context.Context, kind RuleKind) ([]AliasRuleRecord, error) {
	table, err := ruleTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := sdb.conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, canonical_value, alias_pattern, match_type, case_sensitive, priority, client_scope
		FROM %s
		ORDER BY id
	`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to list alias rules: %w", err)
	}
	defer rows.Close()

	records := []AliasRuleRecord{}
	for rows.Next() {
		var rec AliasRuleRecord
		var matchType string
		if err := rows.Scan(&rec.ID, &rec.CanonicalValue, &rec.AliasPattern, &matchType,
			&rec.CaseSensitive, &rec.Priority, &rec.ClientScope); err != nil {
			return nil, fmt.Errorf("failed to scan alias rule: %w", err)
		}
		rec.MatchType = normalization.MatchType(matchType)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alias rules: %w", err)
	}
	return records, nil
}

// LoadMetricAliasRules загружает правила метрик для построения резолвера.
// Порядок стабильный (по id), это порядок хранилища для разрешения ничьих.
func (sdb *ServiceDB) LoadMetricAliasRules(ctx context.Context) ([]normalization.AliasRule, error) {
	return sdb.loadRules(ctx, RuleKindMetric)
}

// LoadIndustryAliasRules загружает правила индустрий
func (sdb *ServiceDB) LoadIndustryAliasRules(ctx context.Context) ([]normalization.AliasRule, error) {
	return sdb.loadRules(ctx, RuleKindIndustry)
}

func (sdb *ServiceDB) loadRules(ctx context.Context, kind RuleKind) ([]normalization.AliasRule, error) {
	records, err := sdb.ListAliasRules(ctx, kind)
	if err != nil {
		return nil, err
	}
	rules := make([]normalization.AliasRule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, rec.AliasRule)
	}
	return rules, nil
}

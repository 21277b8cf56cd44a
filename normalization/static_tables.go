package normalization

import (
	"regexp"
	"strings"
)

// Статические таблицы-фоллбэки. Используются только когда динамический резолвер
// не нашел совпадения. Порядок объявления важен: при поиске по подстроке
// побеждает первая подходящая запись.

// staticAlias запись статического словаря
type staticAlias struct {
	key       string // ключ в нижнем регистре
	canonical string
}

// orgAliasTable известные написания организаций
var orgAliasTable = []staticAlias{
	{"united health group", "UHC"},
	{"unitedhealth", "UHC"},
	{"united healthcare", "UHC"},
	{"uhg", "UHC"},
	{"uhc", "UHC"},
	{"optum", "OPTUM"},
	{"aetna", "AETNA"},
	{"cvs health", "CVS"},
	{"cvs", "CVS"},
	{"cigna", "CIGNA"},
	{"humana", "HUMANA"},
	{"elevance", "ELEVANCE"},
	{"anthem", "ELEVANCE"},
	{"kaiser permanente", "KAISER"},
	{"kaiser", "KAISER"},
	{"blue cross", "BCBS"},
	{"blue shield", "BCBS"},
	{"bcbs", "BCBS"},
	{"centene", "CENTENE"},
	{"molina", "MOLINA"},
	{"wells fargo", "WELLS FARGO"},
	{"t-mobile", "T-MOBILE"},
	{"tmobile", "T-MOBILE"},
	{"verizon", "VERIZON"},
	{"comcast", "COMCAST"},
	{"xfinity", "COMCAST"},
}

// metricPattern семейство написаний метрики
type metricPattern struct {
	re        *regexp.Regexp
	canonical string
}

// metricPatternTable regex-семейства названий метрик
var metricPatternTable = []metricPattern{
	{regexp.MustCompile(`(?i)first\s*call\s*resolution|\bfcr\b`), "FCR"},
	{regexp.MustCompile(`(?i)average\s*handle\s*time|\baht\b`), "AHT"},
	{regexp.MustCompile(`(?i)customer\s*sat(isfaction)?|\bcsat\b`), "CSAT"},
	{regexp.MustCompile(`(?i)net\s*promoter|\bnps\b`), "NPS"},
	{regexp.MustCompile(`(?i)quality\s*(score|assurance)|\bqa\b`), "QUALITY SCORE"},
	{regexp.MustCompile(`(?i)schedule\s*adherence|\badherence\b`), "ADHERENCE"},
	{regexp.MustCompile(`(?i)\battendance\b|absenteeism`), "ATTENDANCE"},
	{regexp.MustCompile(`(?i)\boccupancy\b`), "OCCUPANCY"},
	{regexp.MustCompile(`(?i)\battrition\b|turnover`), "ATTRITION"},
	{regexp.MustCompile(`(?i)calls?\s*per\s*hour|\bcph\b`), "CPH"},
	{regexp.MustCompile(`(?i)transfer\s*rate|\btransfers?\b`), "TRANSFER RATE"},
	{regexp.MustCompile(`(?i)after\s*call\s*work|\bacw\b`), "ACW"},
	{regexp.MustCompile(`(?i)service\s*level|\bsl\b|\bsla\b`), "SERVICE LEVEL"},
	{regexp.MustCompile(`(?i)abandon(ment)?\s*(rate)?`), "ABANDON RATE"},
}

// industryAliasTable маппинг названий организаций на индустрии.
// Сначала точные канонические имена, затем ключевые слова.
var industryAliasTable = []staticAlias{
	{"uhc", "HEALTHCARE"},
	{"optum", "HEALTHCARE"},
	{"aetna", "HEALTHCARE"},
	{"cvs", "HEALTHCARE"},
	{"cigna", "HEALTHCARE"},
	{"humana", "HEALTHCARE"},
	{"elevance", "HEALTHCARE"},
	{"kaiser", "HEALTHCARE"},
	{"bcbs", "HEALTHCARE"},
	{"centene", "HEALTHCARE"},
	{"molina", "HEALTHCARE"},
	{"wells fargo", "FINANCIAL SERVICES"},
	{"t-mobile", "TELECOM"},
	{"verizon", "TELECOM"},
	{"comcast", "TELECOM"},
	{"health", "HEALTHCARE"},
	{"medical", "HEALTHCARE"},
	{"clinic", "HEALTHCARE"},
	{"pharma", "HEALTHCARE"},
	{"insurance", "INSURANCE"},
	{"bank", "FINANCIAL SERVICES"},
	{"financ", "FINANCIAL SERVICES"},
	{"credit", "FINANCIAL SERVICES"},
	{"telecom", "TELECOM"},
	{"wireless", "TELECOM"},
	{"broadband", "TELECOM"},
	{"retail", "RETAIL"},
	{"commerce", "RETAIL"},
	{"airline", "TRAVEL & HOSPITALITY"},
	{"hotel", "TRAVEL & HOSPITALITY"},
	{"travel", "TRAVEL & HOSPITALITY"},
	{"energy", "ENERGY & UTILITIES"},
	{"utilit", "ENERGY & UTILITIES"},
	{"software", "TECHNOLOGY"},
	{"tech", "TECHNOLOGY"},
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// UppercaseCollapse тривиальная каноникализация: трим, схлопывание пробелов, верхний регистр.
// Это значение по умолчанию, когда ни одно правило мэппинга не сработало.
func UppercaseCollapse(s string) string {
	return strings.ToUpper(strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " ")))
}

// lookupAliasTable ищет в таблице сначала точное совпадение, затем по подстроке
func lookupAliasTable(table []staticAlias, raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	for _, a := range table {
		if a.key == value {
			return a.canonical
		}
	}
	for _, a := range table {
		if strings.Contains(value, a.key) {
			return a.canonical
		}
	}
	return ""
}

// DeriveCanonicalOrg возвращает каноническое название организации.
// Если словарь не знает такого названия, возвращает UppercaseCollapse —
// организация всегда получает какое-то каноническое значение.
func DeriveCanonicalOrg(raw string) string {
	if canonical := lookupAliasTable(orgAliasTable, raw); canonical != "" {
		return canonical
	}
	return UppercaseCollapse(raw)
}

// DeriveCanonicalMetric возвращает каноническое название метрики через
// regex-семейства, иначе UppercaseCollapse.
func DeriveCanonicalMetric(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	for _, p := range metricPatternTable {
		if p.re.MatchString(value) {
			return p.canonical
		}
	}
	return UppercaseCollapse(value)
}

// DeriveCanonicalIndustry определяет индустрию по названию организации.
// В отличие от организаций и метрик, индустрия может быть неизвестна —
// тогда возвращается пустая строка.
func DeriveCanonicalIndustry(raw string) string {
	return lookupAliasTable(industryAliasTable, raw)
}

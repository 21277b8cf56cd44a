package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period каноническая пара месяц/год, извлеченная из ячейки с датой.
// Пустой Month или нулевой Year означают, что период распознать не удалось.
type Period struct {
	Month string `json:"month"` // трехбуквенный код: Jan..Dec
	Year  int    `json:"year"`
}

// Valid сообщает, распознаны ли обе части периода
func (p Period) Valid() bool {
	return p.Month != "" && p.Year != 0
}

// excelEpoch начало отсчета серийных дат Excel
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// monthToken варианты написания месяца в порядке поиска:
// сначала полные названия, затем "sept", затем трехбуквенные сокращения
type monthToken struct {
	token string
	code  string
}

var monthTokens = []monthToken{
	{"january", "Jan"}, {"february", "Feb"}, {"march", "Mar"}, {"april", "Apr"},
	{"may", "May"}, {"june", "Jun"}, {"july", "Jul"}, {"august", "Aug"},
	{"september", "Sep"}, {"october", "Oct"}, {"november", "Nov"}, {"december", "Dec"},
	{"sept", "Sep"},
	{"jan", "Jan"}, {"feb", "Feb"}, {"mar", "Mar"}, {"apr", "Apr"},
	{"jun", "Jun"}, {"jul", "Jul"}, {"aug", "Aug"}, {"sep", "Sep"},
	{"oct", "Oct"}, {"nov", "Nov"}, {"dec", "Dec"},
}

var (
	fourDigitYearRegex = regexp.MustCompile(`\b(\d{4})\b`)
	twoDigitYearRegex  = regexp.MustCompile(`\b(\d{2})\b`)
)

// ParsePeriod извлекает месяц и год из значения ячейки.
// Числа трактуются как серийные даты Excel, строки — как свободный текст
// вида "Jun-25" или "June 2025". Никогда не паникует и не возвращает
// ошибку: нераспознанный период — это пустая Period, решение за вызывающим.
func ParsePeriod(raw any) Period {
	switch v := raw.(type) {
	case nil:
		return Period{}
	case time.Time:
		return periodFromDate(v.UTC())
	case float64:
		return periodFromSerial(v)
	case float32:
		return periodFromSerial(float64(v))
	case int:
		return periodFromSerial(float64(v))
	case int64:
		return periodFromSerial(float64(v))
	case string:
		return parsePeriodString(v)
	}
	return Period{}
}

// periodFromSerial конвертирует серийную дату Excel в календарную (UTC).
// Значения ниже 10000 отбрасываются: серийные даты этого диапазона лежат
// до 1927 года, а такое число в ячейке периода — это голый год или номер.
func periodFromSerial(serial float64) Period {
	if serial < 10000 || serial > 200000 {
		return Period{}
	}
	date := excelEpoch.AddDate(0, 0, int(serial))
	return periodFromDate(date)
}

func periodFromDate(t time.Time) Period {
	return Period{
		Month: t.UTC().Format("Jan"),
		Year:  t.UTC().Year(),
	}
}

// parsePeriodString ищет название месяца и токен года в свободном тексте
func parsePeriodString(s string) Period {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}
	}

	// Чисто числовая строка — серийная дата из сырой ячейки
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return periodFromSerial(serial)
	}

	lower := strings.ToLower(s)

	month := ""
	for _, mt := range monthTokens {
		if strings.Contains(lower, mt.token) {
			month = mt.code
			break
		}
	}
	if month == "" {
		return Period{}
	}

	year := 0
	if m := fourDigitYearRegex.FindStringSubmatch(lower); m != nil {
		year, _ = strconv.Atoi(m[1])
	} else if ms := twoDigitYearRegex.FindAllStringSubmatch(lower, -1); ms != nil {
		// Двузначные годы относим к 2000-м. Берется последний токен:
		// в написаниях вида "15 Jun 25" первый токен — день, а не год.
		y, _ := strconv.Atoi(ms[len(ms)-1][1])
		year = y + 2000
	}
	if year == 0 {
		return Period{}
	}

	return Period{Month: month, Year: year}
}

// monthNumber номер месяца по трехбуквенному коду (1..12), 0 если код неизвестен
func monthNumber(code string) int {
	for i, mt := range monthTokens[:12] {
		if mt.code == code {
			return i + 1
		}
	}
	return 0
}

// periodEndOfMonth последний день месяца периода (UTC)
func periodEndOfMonth(p Period) time.Time {
	m := monthNumber(p.Month)
	if m == 0 || p.Year == 0 {
		return time.Time{}
	}
	firstOfNext := time.Date(p.Year, time.Month(m), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// periodOldEnough проверяет, что конец месяца периода отстоит от today
// не менее чем на minDays целых суток (UTC)
func periodOldEnough(p Period, today time.Time, minDays int) bool {
	end := periodEndOfMonth(p)
	if end.IsZero() {
		return false
	}
	days := int(today.UTC().Sub(end).Hours() / 24)
	return days >= minDays
}

package parser

import (
	"testing"
	"time"
)

// TestParsePeriod_Strings проверяет разбор текстовых периодов
func TestParsePeriod_Strings(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantMonth string
		wantYear  int
	}{
		{"abbrev dash two digit year", "Jun-25", "Jun", 2025},
		{"full month and year", "June 2025", "Jun", 2025},
		{"month space two digit", "Mar 24", "Mar", 2024},
		{"sept special case", "Sept 2024", "Sep", 2024},
		{"full september", "September 2024", "Sep", 2024},
		{"mixed case", "oCtObEr 2023", "Oct", 2023},
		{"day first two digit year", "15 Jun 25", "Jun", 2025},
		{"day first full year", "15 June 2025", "Jun", 2025},
		{"no year", "June", "", 0},
		{"no month", "2025", "", 0},
		{"garbage", "hello world", "", 0},
		{"empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePeriod(tt.input)
			if p.Month != tt.wantMonth || p.Year != tt.wantYear {
				t.Errorf("ParsePeriod(%q) = {%s %d}, want {%s %d}",
					tt.input, p.Month, p.Year, tt.wantMonth, tt.wantYear)
			}
		})
	}
}

// TestParsePeriod_Serial серийная дата Excel 45808 = 2025-05-31
func TestParsePeriod_Serial(t *testing.T) {
	p := ParsePeriod(45808.0)
	if p.Month != "May" || p.Year != 2025 {
		t.Errorf("ParsePeriod(45808) = {%s %d}, want {May 2025}", p.Month, p.Year)
	}

	// Та же серийная дата строкой из сырой ячейки
	ps := ParsePeriod("45808")
	if ps != p {
		t.Errorf("string serial must parse identically: %+v != %+v", ps, p)
	}

	// Путь через date-объект должен давать тот же результат для той же даты
	pd := ParsePeriod(time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC))
	if pd != p {
		t.Errorf("date path must agree with serial path: %+v != %+v", pd, p)
	}
}

// TestParsePeriod_SerialBounds значения вне разумных пределов отбрасываются
func TestParsePeriod_SerialBounds(t *testing.T) {
	if p := ParsePeriod(-5.0); p.Valid() {
		t.Errorf("negative serial must not parse, got %+v", p)
	}
	if p := ParsePeriod(5000000.0); p.Valid() {
		t.Errorf("absurd serial must not parse, got %+v", p)
	}
	// Голый год — не серийная дата (серийные даты 2000-х начинаются с ~36526)
	if p := ParsePeriod(2025.0); p.Valid() {
		t.Errorf("bare year must not parse as a serial date, got %+v", p)
	}
}

// TestParsePeriod_Nil nil дает пустой период без паники
func TestParsePeriod_Nil(t *testing.T) {
	if p := ParsePeriod(nil); p.Valid() {
		t.Errorf("nil input must yield empty period, got %+v", p)
	}
}

// TestPeriodOldEnough проверка девятидневного порога по концу месяца
func TestPeriodOldEnough(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// Май 2025 закончился 31 мая: 15 дней назад — достаточно старый
	if !periodOldEnough(Period{Month: "May", Year: 2025}, today, 9) {
		t.Error("May 2025 must be old enough on June 15")
	}
	// Июнь 2025 еще не закончился
	if periodOldEnough(Period{Month: "Jun", Year: 2025}, today, 9) {
		t.Error("Jun 2025 must not be old enough on June 15")
	}
	// Ровно на границе: конец мая + 9 дней = 9 июня
	boundary := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	if !periodOldEnough(Period{Month: "May", Year: 2025}, boundary, 9) {
		t.Error("exactly 9 days past end of month must count as old enough")
	}
	if periodOldEnough(Period{Month: "May", Year: 2025}, boundary.AddDate(0, 0, -1), 9) {
		t.Error("8 days past end of month must not count as old enough")
	}
}

package parser

import (
	"math"
	"strconv"
	"strings"
)

var numericCleaner = strings.NewReplacer(
	"%", "",
	",", "",
	"$", "",
	" ", "",
	" ", "",
)

// CoerceNumeric толерантно приводит значение ячейки к числу.
// Снимает проценты и разделители тысяч; все, что не парсится в конечное
// число, превращается в nil — никогда не паникует и не возвращает ошибку.
func CoerceNumeric(raw any) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return finiteOrNil(v)
	case float32:
		return finiteOrNil(float64(v))
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case string:
		cleaned := numericCleaner.Replace(strings.TrimSpace(v))
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return finiteOrNil(f)
	}
	return nil
}

func finiteOrNil(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

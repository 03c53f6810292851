package helper

import "strings"

// NormBar приводит таймфрейм из конфига к формату bar OKX:
// минуты строчные, часы/дни/недели/месяцы заглавные ("15m", "1H", "1D").
func NormBar(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	if s == "" {
		return s
	}

	unit := s[len(s)-1]
	switch unit {
	case 'h', 'd', 'w':
		return s[:len(s)-1] + strings.ToUpper(string(unit))
	case 'm':
		// "3M" — месяцы, различаем по исходному регистру.
		if strings.HasSuffix(raw, "M") {
			return s[:len(s)-1] + "M"
		}
		return s
	}
	return s
}

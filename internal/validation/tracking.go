// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

// TrackingPrefix задаёт префикс кода отслеживания исполнения.
const TrackingPrefix = "EDL"

const trackingDigits = 11

// luhnSum считает контрольную сумму Луна для строки цифр.
// double указывает, удваивается ли последняя цифра.
func luhnSum(digits string, double bool) (int, bool) {
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		ch := rune(digits[i])
		if !unicode.IsDigit(ch) {
			return 0, false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum, true
}

// LuhnCheckDigit возвращает контрольную цифру, дописываемую к base.
func LuhnCheckDigit(base string) (byte, bool) {
	if base == "" {
		return 0, false
	}
	sum, ok := luhnSum(base, true)
	if !ok {
		return 0, false
	}
	return byte('0' + (10-sum%10)%10), true
}

// IsValidLuhn проверяет строку цифр по алгоритму Луна.
func IsValidLuhn(number string) bool {
	if number == "" {
		return false
	}
	sum, ok := luhnSum(number, false)
	return ok && sum%10 == 0
}

// IsValidTrackingCode проверяет формат EDL + 10 цифр + контрольная цифра Луна.
func IsValidTrackingCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	digits, ok := strings.CutPrefix(code, TrackingPrefix)
	if !ok || len(digits) != trackingDigits {
		return false
	}
	return IsValidLuhn(digits)
}

// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"

	"github.com/mmeshcher/clubperks/internal/model"
)

// CodeSuffixLength задаёт длину случайной части строки кода.
const CodeSuffixLength = 16

// NormalizeCode приводит введённую строку кода к каноническому виду.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode проверяет формат строки кода: известный префикс, дефис и
// CodeSuffixLength шестнадцатеричных символов в верхнем регистре.
func IsValidCode(code string) bool {
	prefix, suffix, ok := strings.Cut(code, "-")
	if !ok {
		return false
	}

	if _, known := model.CodeTypeByPrefix(prefix); !known {
		return false
	}

	if len(suffix) != CodeSuffixLength {
		return false
	}

	for i := 0; i < len(suffix); i++ {
		ch := suffix[i]
		if !(ch >= '0' && ch <= '9') && !(ch >= 'A' && ch <= 'F') {
			return false
		}
	}

	return true
}

package service

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/clubperks/internal/model"
)

// newCodeString собирает строку кода из префикса типа и 64 случайных бит
// UUID v4. Байты версии и варианта UUID пропускаются.
func newCodeString(t model.CodeType) string {
	u := uuid.New()

	var b [8]byte
	copy(b[:4], u[:4])
	copy(b[4:], u[12:16])

	return t.Prefix() + "-" + strings.ToUpper(hex.EncodeToString(b[:]))
}

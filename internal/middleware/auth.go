// Package middleware содержит HTTP middleware для сервиса клубных привилегий.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/clubperks/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity описывает вызывающую сторону, извлечённую из токена доступа.
type Identity struct {
	UserID    int64
	Tier      model.MembershipTier
	Role      model.Role
	PartnerID int64
}

// Claims содержит утверждения токена доступа.
type Claims struct {
	Tier      string `json:"tier,omitempty"`
	Role      string `json:"role"`
	PartnerID int64  `json:"partner_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет токены доступа, подписанные HS256.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет заголовок Authorization и добавляет Identity в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		id, err := a.ParseToken(token)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// RequireRole пропускает запрос только для перечисленных ролей.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// IssueToken подписывает токен доступа для id со сроком действия ttl.
// Сервис токены не выпускает, их выдаёт сервис идентификации; метод нужен
// тестам и локальным утилитам, подписывающим токен тем же секретом.
func (a *AuthMiddleware) IssueToken(id Identity, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		Tier:      string(id.Tier),
		Role:      string(id.Role),
		PartnerID: id.PartnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
}

// ParseToken проверяет подпись и срок токена и возвращает Identity.
func (a *AuthMiddleware) ParseToken(token string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("invalid subject %q", claims.Subject)
	}

	role := model.Role(strings.ToLower(claims.Role))
	switch role {
	case "":
		role = model.RoleMember
	case model.RoleMember, model.RoleAdmin:
	case model.RolePartner:
		if claims.PartnerID <= 0 {
			return Identity{}, errors.New("partner token without partner_id")
		}
	default:
		return Identity{}, fmt.Errorf("unknown role %q", claims.Role)
	}

	return Identity{
		UserID:    userID,
		Tier:      model.MembershipTier(strings.ToLower(claims.Tier)),
		Role:      role,
		PartnerID: claims.PartnerID,
	}, nil
}

// IdentityFromContext извлекает Identity из контекста запроса.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

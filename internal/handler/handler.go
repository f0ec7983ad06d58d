// Package handler содержит HTTP-обработчики API сервиса клубных привилегий.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/clubperks/internal/catalog"
	"github.com/mmeshcher/clubperks/internal/middleware"
	"github.com/mmeshcher/clubperks/internal/model"
	"github.com/mmeshcher/clubperks/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Generate(ctx context.Context, userID int64, tier model.MembershipTier, offerID int64, codeType string) (*model.Code, error)
	Validate(ctx context.Context, code string, partnerID int64) (*service.ValidationResult, error)
	Redeem(ctx context.Context, code string, amount decimal.Decimal, partnerID int64) (*model.Redemption, error)
	GetRedemption(ctx context.Context, code string, partnerID int64) (*model.Redemption, error)
	Cancel(ctx context.Context, code string) (*model.Code, error)
	ListUserCodes(ctx context.Context, userID int64, f model.CodeFilter) ([]model.Code, error)
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	ListLedger(ctx context.Context, userID int64) ([]model.LedgerEntry, error)
	OfferStock(ctx context.Context, offerID int64) (model.Stock, error)
	UpsertOffer(ctx context.Context, o *model.Offer) error
}

// Handler реализует HTTP-обработчики API сервиса клубных привилегий.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type generateRequest struct {
	CodeType string `json:"code_type"`
}

// GenerateCode выдаёт текущему пользователю код по предложению.
func (h *Handler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	offerID, err := strconv.ParseInt(chi.URLParam(r, "offerID"), 10, 64)
	if err != nil || offerID <= 0 {
		h.writeError(w, model.ErrInvalidOffer)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	code, err := h.service.Generate(r.Context(), id.UserID, id.Tier, offerID, req.CodeType)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newCodeResponse(code))
}

// GetOfferStock возвращает остаток предложения.
func (h *Handler) GetOfferStock(w http.ResponseWriter, r *http.Request) {
	offerID, err := strconv.ParseInt(chi.URLParam(r, "offerID"), 10, 64)
	if err != nil || offerID <= 0 {
		h.writeError(w, model.ErrInvalidOffer)
		return
	}

	stock, err := h.service.OfferStock(r.Context(), offerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stock)
}

// GetUserCodes возвращает коды текущего пользователя с фильтрами из строки запроса.
func (h *Handler) GetUserCodes(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	filter, err := parseCodeFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	codes, err := h.service.ListUserCodes(r.Context(), id.UserID, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if len(codes) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]codeResponse, 0, len(codes))
	for i := range codes {
		resp = append(resp, newCodeResponse(&codes[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func parseCodeFilter(r *http.Request) (model.CodeFilter, error) {
	q := r.URL.Query()

	var (
		f   model.CodeFilter
		err error
	)

	if v := q.Get("status"); v != "" {
		if f.Status, err = model.ParseCodeStatus(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("offer_id"); v != "" {
		offerID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, model.ErrInvalidFilter
		}
		f.OfferID = &offerID
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil || f.Limit < 0 {
			return f, model.ErrInvalidFilter
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil || f.Offset < 0 {
			return f, model.ErrInvalidFilter
		}
	}

	return f, nil
}

// GetBalance возвращает баланс баллов текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, balance)
}

type ledgerResponse struct {
	Points       int64  `json:"points"`
	Code         string `json:"code"`
	RedemptionID string `json:"redemption_id"`
	CreatedAt    string `json:"created_at"`
}

// GetPoints возвращает историю начислений текущего пользователя.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	entries, err := h.service.ListLedger(r.Context(), id.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]ledgerResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, ledgerResponse{
			Points:       e.Points,
			Code:         e.Code,
			RedemptionID: e.RedemptionID.String(),
			CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type validateResponse struct {
	Valid bool         `json:"valid"`
	Code  codeResponse `json:"code"`
}

// ValidateCode проверяет код без изменения его состояния.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	res, err := h.service.Validate(r.Context(), chi.URLParam(r, "code"), partnerScope(id))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, validateResponse{Valid: res.Valid, Code: newCodeResponse(res.Code)})
}

type redeemRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// RedeemCode гасит код на сумму покупки.
func (h *Handler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	red, err := h.service.Redeem(r.Context(), chi.URLParam(r, "code"), *req.Amount, partnerScope(id))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newRedemptionResponse(red))
}

// GetRedemption возвращает сохранённое погашение кода.
func (h *Handler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	red, err := h.service.GetRedemption(r.Context(), chi.URLParam(r, "code"), partnerScope(id))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newRedemptionResponse(red))
}

// CancelCode отменяет активный код.
func (h *Handler) CancelCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.Cancel(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newCodeResponse(code))
}

// PutOffer создаёт или обновляет условия предложения.
func (h *Handler) PutOffer(w http.ResponseWriter, r *http.Request) {
	offerID, err := strconv.ParseInt(chi.URLParam(r, "offerID"), 10, 64)
	if err != nil || offerID <= 0 {
		h.writeError(w, model.ErrInvalidOffer)
		return
	}

	var def catalog.OfferDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	def.ID = offerID

	offer := def.Offer()
	if err := h.service.UpsertOffer(r.Context(), offer); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// partnerScope возвращает партнёра, которым ограничен вызывающий. Для
// администратора ограничения нет.
func partnerScope(id middleware.Identity) int64 {
	if id.Role == model.RolePartner {
		return id.PartnerID
	}
	return 0
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, model.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrState):
		status = http.StatusConflict
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrConcurrency):
		w.Header().Set("Retry-After", "1")
		status = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrGeneration):
		status = http.StatusServiceUnavailable
	default:
		h.logger.Error("request failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, status, errorResponse{Error: model.Reason(err), Message: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fundraiser/internal/domain"
	"fundraiser/internal/ledger"
	"fundraiser/internal/middleware"
)

const maxBodyBytes = 64 << 10

// App carries the dependencies shared by every handler.
type App struct {
	Ledgers *ledger.Service
	Logger  zerolog.Logger

	// Decimals scales amount_units into base units.
	Decimals int

	// Ready reports storage health for /v1/healthz. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewApp(ledgers *ledger.Service, logger zerolog.Logger, decimals int) *App {
	return &App{Ledgers: ledgers, Logger: logger, Decimals: decimals}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorBody{Error: errorDetail{Code: errCode, Message: message}})
}

// fail maps ledger errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusForbidden, "forbidden", "caller is not the owner")
	case errors.Is(err, domain.ErrInvalidAmount):
		a.error(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive integer of base units")
	case errors.Is(err, domain.ErrZeroIdentity):
		a.error(w, http.StatusBadRequest, "zero_identity", "identity must not be the zero address")
	case errors.Is(err, domain.ErrInvalidPage):
		a.error(w, http.StatusBadRequest, "invalid_page", "offset and limit must not be negative")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "fundraiser not found")
	case errors.Is(err, domain.ErrAmountOverflow):
		a.error(w, http.StatusUnprocessableEntity, "overflow", "amount exceeds the ledger capacity")
	case errors.Is(err, domain.ErrTransferFailed):
		a.error(w, http.StatusBadGateway, "transfer_failed", "payout transfer failed")
	default:
		a.Logger.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// ledger opens the fundraiser named by the {id} path parameter.
func (a *App) ledger(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "fundraiser not found")
		return nil, false
	}
	l, err := a.Ledgers.Open(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return l, true
}

// page reads offset and limit query parameters. Missing values are zero.
func (a *App) page(w http.ResponseWriter, r *http.Request) (offset, limit int, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"offset", &offset}, {"limit", &limit}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "invalid_page", p.name+" must be a non-negative integer")
			return 0, 0, false
		}
		*p.dst = n
	}
	return offset, limit, true
}

func caller(r *http.Request) domain.Identity {
	return middleware.CallerFromContext(r.Context())
}

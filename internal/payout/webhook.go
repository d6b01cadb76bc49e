// Package payout provides value-transfer primitives used by withdrawals.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fundraiser/internal/domain"
)

// Options configures a WebhookTransferrer.
type Options struct {
	URL            string
	Secret         string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// WebhookTransferrer delegates transfers to an external payout processor
// over HTTP. A 2xx response means the processor moved the funds.
type WebhookTransferrer struct {
	url        string
	secret     string
	httpClient *http.Client
	logger     zerolog.Logger
}

type transferRequest struct {
	TransferID   string        `json:"transfer_id"`
	FundraiserID string        `json:"fundraiser_id"`
	Beneficiary  string        `json:"beneficiary"`
	Amount       domain.Amount `json:"amount"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewWebhookTransferrer validates opts and applies defaults.
func NewWebhookTransferrer(opts Options) (*WebhookTransferrer, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("payout: webhook url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "payout").Logger()
	}
	return &WebhookTransferrer{
		url:        url,
		secret:     strings.TrimSpace(opts.Secret),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (w *WebhookTransferrer) Transfer(ctx context.Context, t domain.Transfer) error {
	body, err := json.Marshal(transferRequest{
		TransferID:   t.ID.String(),
		FundraiserID: t.FundraiserID.String(),
		Beneficiary:  t.To.String(),
		Amount:       t.Amount,
	})
	if err != nil {
		return fmt.Errorf("payout: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("payout: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", t.ID.String())
	if w.secret != "" {
		req.Header.Set("Authorization", "Bearer "+w.secret)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payout: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("payout: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return fmt.Errorf("payout: %s (%s)", detail.Message, detail.Code)
		}
		return fmt.Errorf("payout: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	w.logger.Debug().
		Str("transfer_id", t.ID.String()).
		Str("beneficiary", t.To.String()).
		Str("amount", t.Amount.String()).
		Msg("payout: transfer accepted")
	return nil
}

var _ domain.Transferrer = (*WebhookTransferrer)(nil)

package handlers

import (
	"net/http"

	"fundraiser/internal/domain"
)

type beneficiaryRequest struct {
	Beneficiary string `json:"beneficiary"`
}

func (a *App) BeneficiaryUpdate(w http.ResponseWriter, r *http.Request) {
	l, ok := a.ledger(w, r)
	if !ok {
		return
	}
	var req beneficiaryRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := l.SetBeneficiary(r.Context(), caller(r), domain.Identity(req.Beneficiary)); err != nil {
		a.fail(w, r, err)
		return
	}
	f, err := l.Snapshot(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newFundraiserView(f))
}

func (a *App) WithdrawalsCreate(w http.ResponseWriter, r *http.Request) {
	l, ok := a.ledger(w, r)
	if !ok {
		return
	}
	amount, err := l.Withdraw(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	beneficiary, err := l.Beneficiary(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"fundraiser_id": l.ID().String(),
		"beneficiary":   beneficiary.String(),
		"amount":        amount,
	})
}

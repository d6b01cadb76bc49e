package handlers

import (
	"net/http"

	"fundraiser/internal/domain"
)

// donationRequest carries exactly one of amount (base units) or
// amount_units (whole units scaled by the server decimals).
type donationRequest struct {
	Amount      *string `json:"amount"`
	AmountUnits *string `json:"amount_units"`
}

func (a *App) parseDonation(req donationRequest) (domain.Amount, error) {
	switch {
	case req.Amount != nil && req.AmountUnits == nil:
		return domain.ParseAmount(*req.Amount)
	case req.AmountUnits != nil && req.Amount == nil:
		return domain.ParseUnits(*req.AmountUnits, a.Decimals)
	default:
		return domain.Amount{}, domain.ErrInvalidAmount
	}
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	l, ok := a.ledger(w, r)
	if !ok {
		return
	}
	var req donationRequest
	if !a.decode(w, r, &req) {
		return
	}
	amount, err := a.parseDonation(req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rec, err := l.Donate(r.Context(), caller(r), amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"fundraiser_id": l.ID().String(),
		"amount":        rec.Amount,
		"timestamp":     rec.Timestamp,
	})
}

// MyDonations returns the caller's history as parallel amount and timestamp
// arrays. Without paging parameters the whole history is returned.
func (a *App) MyDonations(w http.ResponseWriter, r *http.Request) {
	l, ok := a.ledger(w, r)
	if !ok {
		return
	}
	who := caller(r)

	var (
		count      uint64
		amounts    []domain.Amount
		timestamps []uint64
		err        error
	)
	q := r.URL.Query()
	if q.Has("offset") || q.Has("limit") {
		offset, limit, ok := a.page(w, r)
		if !ok {
			return
		}
		// A page reports the total so clients know when to stop.
		count, err = l.MyDonationsCount(r.Context(), who)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		recs, err := l.MyDonationsPage(r.Context(), who, offset, limit)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		amounts = make([]domain.Amount, 0, len(recs))
		timestamps = make([]uint64, 0, len(recs))
		for _, rec := range recs {
			amounts = append(amounts, rec.Amount)
			timestamps = append(timestamps, rec.Timestamp)
		}
	} else {
		amounts, timestamps, err = l.MyDonations(r.Context(), who)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		count = uint64(len(amounts))
	}
	if amounts == nil {
		amounts = []domain.Amount{}
		timestamps = []uint64{}
	}

	a.json(w, http.StatusOK, map[string]any{
		"count":      count,
		"amounts":    amounts,
		"timestamps": timestamps,
	})
}

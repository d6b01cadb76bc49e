package handlers

import (
	"net/http"
	"time"

	"fundraiser/internal/domain"
	"fundraiser/internal/ledger"
)

type fundraiserView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	ImageURL       string    `json:"image_url"`
	Description    string    `json:"description"`
	Owner          string    `json:"owner"`
	Beneficiary    string    `json:"beneficiary"`
	DonationsCount uint64    `json:"donations_count"`
	TotalDonations string    `json:"total_donations"`
	Balance        string    `json:"balance"`
	TotalWithdrawn string    `json:"total_withdrawn"`
	CreatedAt      time.Time `json:"created_at"`
}

func newFundraiserView(f *domain.Fundraiser) fundraiserView {
	return fundraiserView{
		ID:             f.ID.String(),
		Name:           f.Name,
		URL:            f.URL,
		ImageURL:       f.ImageURL,
		Description:    f.Description,
		Owner:          f.Owner.String(),
		Beneficiary:    f.Beneficiary.String(),
		DonationsCount: f.DonationsCount,
		TotalDonations: f.TotalDonations.String(),
		Balance:        f.Balance.String(),
		TotalWithdrawn: f.TotalWithdrawn.String(),
		CreatedAt:      f.CreatedAt,
	}
}

type createFundraiserRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Beneficiary string `json:"beneficiary"`

	// Owner defaults to the caller.
	Owner string `json:"owner"`
}

func (a *App) FundraisersCreate(w http.ResponseWriter, r *http.Request) {
	var req createFundraiserRequest
	if !a.decode(w, r, &req) {
		return
	}
	owner := domain.Identity(req.Owner)
	if req.Owner == "" {
		owner = caller(r)
	}
	l, err := a.Ledgers.Create(r.Context(), ledger.CreateParams{
		Name:        req.Name,
		URL:         req.URL,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Beneficiary: domain.Identity(req.Beneficiary),
		Owner:       owner,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	f, err := l.Snapshot(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/fundraisers/"+f.ID.String())
	a.json(w, http.StatusCreated, newFundraiserView(f))
}

func (a *App) FundraisersList(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := a.page(w, r)
	if !ok {
		return
	}
	items, total, err := a.Ledgers.List(r.Context(), offset, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views := make([]fundraiserView, 0, len(items))
	for i := range items {
		views = append(views, newFundraiserView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":  views,
		"total":  total,
		"offset": offset,
	})
}

func (a *App) FundraiserGet(w http.ResponseWriter, r *http.Request) {
	l, ok := a.ledger(w, r)
	if !ok {
		return
	}
	f, err := l.Snapshot(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newFundraiserView(f))
}

func (a *App) FundraiserEvents(w http.ResponseWriter, r *http.Request) {
	l, ok := a.ledger(w, r)
	if !ok {
		return
	}
	offset, limit, ok := a.page(w, r)
	if !ok {
		return
	}
	evs, err := l.Events(r.Context(), offset, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": evs})
}

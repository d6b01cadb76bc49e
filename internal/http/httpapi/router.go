package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fundraiser/internal/http/handlers"
	"fundraiser/internal/metrics"
	"fundraiser/internal/middleware"
)

// Options configures the cross-cutting middleware of the router.
type Options struct {
	JWTSecret       string
	JWTIssuer       string
	RateLimitPerMin int
	CORSOrigins     []string

	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.Metrics
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	auth := middleware.AuthJWT(opts.JWTSecret, opts.JWTIssuer)
	limit := opts.RateLimitPerMin
	if limit <= 0 {
		limit = 30
	}
	mutating := middleware.RateLimit(limit, time.Minute)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/fundraisers", func(r chi.Router) {
		r.Get("/", app.FundraisersList)
		r.With(auth, mutating).Post("/", app.FundraisersCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.FundraiserGet)
			r.Get("/events", app.FundraiserEvents)
			r.With(auth).Get("/me/donations", app.MyDonations)

			r.Group(func(r chi.Router) {
				r.Use(auth, mutating)
				r.Post("/donations", app.DonationsCreate)
				r.Put("/beneficiary", app.BeneficiaryUpdate)
				r.Post("/withdrawals", app.WithdrawalsCreate)
			})
		})
	})

	return r
}

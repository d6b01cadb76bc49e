package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if a.Ready != nil {
		if err := a.Ready(r.Context()); err != nil {
			a.Logger.Warn().Err(err).Msg("health check failed")
			a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

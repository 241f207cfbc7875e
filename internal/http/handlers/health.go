package handlers

import (
	"net/http"
	"time"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"service":   a.ServiceName,
		"status":    "ok",
		"timestamp": a.clock().UTC().Format(time.RFC3339),
	})
}

package controllers

import (
	"net/http"

	"github.com/tryonstudio/tryon-backend/api/middleware"
	"github.com/tryonstudio/tryon-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if tier := middleware.TierFromContext(r.Context()); tier != "" {
			payload["tier"] = tier
		}
		responses.WriteSuccess(w, payload)
	}
}

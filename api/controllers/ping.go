package controllers

import (
	"net/http"

	"github.com/kasuwahq/kasuwa-backend/api/middleware"
	"github.com/kasuwahq/kasuwa-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if user := middleware.UserIDFromContext(r.Context()); user != "" {
			payload["user_id"] = user
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "admin", "status": "ok"}
		if user := middleware.UserIDFromContext(r.Context()); user != "" {
			payload["user_id"] = user
		}
		responses.WriteSuccess(w, payload)
	}
}

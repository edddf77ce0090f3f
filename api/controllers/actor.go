package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/api/middleware"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

// requestUserID extracts the authenticated user id from the request context.
func requestUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// requestActor extracts the authenticated user id and role from the request context.
func requestActor(r *http.Request) (uuid.UUID, enums.ActorRole, error) {
	userID, err := requestUserID(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid actor role")
	}
	return userID, role, nil
}

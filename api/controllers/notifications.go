package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kasuwahq/kasuwa-backend/api/responses"
	"github.com/kasuwahq/kasuwa-backend/internal/notifications"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
)

// ListNotifications returns paginated notifications for the authenticated user.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := notifications.ListParams{UserID: userID}

		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}

		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			params.Cursor = cursor
		}

		if unread := strings.TrimSpace(r.URL.Query().Get("unreadOnly")); unread != "" {
			value, err := strconv.ParseBool(unread)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unreadOnly value"))
				return
			}
			params.UnreadOnly = value
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := parseURLUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), userID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

// MarkAllNotificationsRead marks every unread notification for the caller.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "read", "updated": updated})
	}
}

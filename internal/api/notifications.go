package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartnest/smartnest-core/internal/notification"
)

// handleListNotifications returns notifications, newest first. With
// ?unreadOnly=true only unread records are returned.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	items, err := s.notifications.List(r.Context(), unreadOnly)
	if err != nil {
		s.logger.Error("listing notifications failed", "error", err)
		writeInternalError(w, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items, "count": len(items)})
}

// handleUnreadCount returns the unread notification count for the bell badge.
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.notifications.UnreadCount(r.Context())
	if err != nil {
		s.logger.Error("counting unread notifications failed", "error", err)
		writeInternalError(w, "failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// handleGetNotification returns one notification.
func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	n, err := s.notifications.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			writeNotFound(w, "notification not found")
			return
		}
		s.logger.Error("getting notification failed", "error", err)
		writeInternalError(w, "failed to get notification")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleMarkRead marks one notification as read.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.notifications.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			writeNotFound(w, "notification not found")
			return
		}
		s.logger.Error("marking notification read failed", "notification_id", id, "error", err)
		writeInternalError(w, "failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// handleMarkAllRead marks every unread notification as read.
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := s.notifications.MarkAllRead(r.Context())
	if err != nil {
		s.logger.Error("marking all notifications read failed", "error", err)
		writeInternalError(w, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

// handleDeleteNotification deletes one notification.
func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.notifications.Delete(r.Context(), id); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			writeNotFound(w, "notification not found")
			return
		}
		s.logger.Error("deleting notification failed", "notification_id", id, "error", err)
		writeInternalError(w, "failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/smartnest/smartnest-core/internal/authz"
	"github.com/smartnest/smartnest-core/internal/notification"
)

func seedNotification(t *testing.T, env *testEnv, title string, read bool) *notification.Notification {
	t.Helper()

	n := &notification.Notification{
		Type:     "alert",
		Title:    title,
		Message:  title + " body",
		Severity: "warning",
		Location: "kitchen",
		IsRead:   read,
	}
	if err := env.notifications.Create(context.Background(), n); err != nil {
		t.Fatalf("creating notification: %v", err)
	}
	return n
}

func TestListNotifications(t *testing.T) {
	env := newTestEnv(t)
	seedNotification(t, env, "Gas high", false)
	seedNotification(t, env, "Old news", true)
	_, token := env.createUser(t, "notif-reader", authz.NotificationsList)

	w := env.do(t, http.MethodGet, "/api/v1/notifications", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Notifications []notification.Notification `json:"notifications"`
		Count         int                         `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestListNotifications_UnreadOnly(t *testing.T) {
	env := newTestEnv(t)
	seedNotification(t, env, "Unread", false)
	seedNotification(t, env, "Read", true)
	_, token := env.createUser(t, "unread-reader", authz.NotificationsList)

	w := env.do(t, http.MethodGet, "/api/v1/notifications?unreadOnly=true", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Notifications []notification.Notification `json:"notifications"`
		Count         int                         `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 1 || resp.Notifications[0].Title != "Unread" {
		t.Errorf("got %+v, want only the unread record", resp.Notifications)
	}
}

func TestUnreadCount(t *testing.T) {
	env := newTestEnv(t)
	seedNotification(t, env, "One", false)
	seedNotification(t, env, "Two", false)
	seedNotification(t, env, "Seen", true)
	_, token := env.createUser(t, "counter", authz.NotificationsUnreadCount)

	w := env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]int
	decode(t, w, &resp)
	if resp["count"] != 2 {
		t.Errorf("count = %d, want 2", resp["count"])
	}
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	n := seedNotification(t, env, "To read", false)
	_, token := env.createUser(t, "marker", authz.NotificationsMarkRead, authz.NotificationsView)

	w := env.do(t, http.MethodPatch, "/api/v1/notifications/"+n.ID+"/read", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/notifications/"+n.ID, token, "")
	var got notification.Notification
	decode(t, w, &got)
	if !got.IsRead {
		t.Error("notification should be read")
	}
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	seedNotification(t, env, "A", false)
	seedNotification(t, env, "B", false)
	_, token := env.createUser(t, "bulk-marker", authz.NotificationsMarkAllRead)

	w := env.do(t, http.MethodPatch, "/api/v1/notifications/mark-all-read", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp map[string]float64
	decode(t, w, &resp)
	if int(resp["updated"]) != 2 {
		t.Errorf("updated = %v, want 2", resp["updated"])
	}
}

func TestDeleteNotification_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "deleter", authz.NotificationsDelete)

	w := env.do(t, http.MethodDelete, "/api/v1/notifications/ntf-missing", token, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

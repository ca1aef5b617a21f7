package handlers_test

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"studybud/internal/models"
)

func paidFlag(t *testing.T, a *app, id uint) bool {
	t.Helper()
	var u models.User
	if err := a.db.First(&u, id).Error; err != nil {
		t.Fatal(err)
	}
	return u.IsPaid
}

func TestDemoSubscribeAndUnsubscribe(t *testing.T) {
	a := newApp(t)
	c := a.login(a.user)

	expectRedirect(t, c.postForm("/demo/subscribe", nil), "/")
	if !paidFlag(t, a, a.user.ID) {
		t.Fatal("Expected user to be paid after subscribe")
	}
	if w := c.get(roomPath(a.jobsRoom)); w.Code != http.StatusOK {
		t.Errorf("Expected 200 after subscribe, got %d", w.Code)
	}

	// subscribing twice is harmless
	expectRedirect(t, c.postForm("/demo/subscribe", url.Values{"next": {roomPath(a.jobsRoom)}}), roomPath(a.jobsRoom))

	expectRedirect(t, c.postForm("/demo/unsubscribe", nil), "/")
	if paidFlag(t, a, a.user.ID) {
		t.Fatal("Expected user to be unpaid after unsubscribe")
	}
	expectRedirect(t, c.get(roomPath(a.jobsRoom)), "/")
}

func TestDemoSubscribeRejectsForeignRedirect(t *testing.T) {
	a := newApp(t)
	c := a.login(a.user)

	expectRedirect(t, c.postForm("/demo/subscribe", url.Values{"next": {"//evil.example"}}), "/")
}

func TestDemoSubscribeRequiresLogin(t *testing.T) {
	a := newApp(t)
	expectRedirect(t, a.anonymous().postForm("/demo/subscribe", nil), "/login")
	if paidFlag(t, a, a.user.ID) {
		t.Error("anonymous subscribe changed a user")
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newApp(t)
	c := a.anonymous()

	if w := c.get("/register"); w.Code != http.StatusOK {
		t.Fatalf("register page: %d", w.Code)
	}
	w := c.postForm("/register", url.Values{
		"email":            {"new@th-deg.de"},
		"password":         {"long-enough"},
		"password_confirm": {"long-enough"},
	})
	expectRedirect(t, w, "/")

	home := c.get("/")
	if home.Code != http.StatusOK {
		t.Fatalf("Expected logged-in home, got %d", home.Code)
	}
	if !strings.Contains(home.Body.String(), "Welcome to StudyBud") {
		t.Error("Expected welcome flash")
	}

	expectRedirect(t, c.postForm("/logout", nil), "/login")
	expectRedirect(t, c.get("/"), "/login")

	if w := c.postForm("/register", url.Values{"email": {"new@th-deg.de"}, "password": {"long-enough"}}); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", w.Code)
	}
	if w := c.postForm("/register", url.Values{"email": {"short@th-deg.de"}, "password": {"short"}}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for short password, got %d", w.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	a := newApp(t)
	c := a.anonymous()

	w := c.postForm("/login", url.Values{"email": {a.user.Email}, "password": {"wrong"}})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	expectRedirect(t, c.get("/"), "/login")
}

func TestProfileIsGated(t *testing.T) {
	a := newApp(t)
	c := a.login(a.other)

	w := c.get(fmt.Sprintf("/u/%d", a.user.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "General Room") || strings.Contains(body, "Jobs Room") {
		t.Error("profile should list only rooms the viewer may see")
	}
	if w := c.get("/u/9999"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestSettingsUpdate(t *testing.T) {
	a := newApp(t)
	a.setPaid(a.user, true)
	c := a.login(a.user)

	if w := c.get("/settings"); w.Code != http.StatusOK {
		t.Fatalf("settings page: %d", w.Code)
	}
	w := c.postForm("/settings", url.Values{"username": {"renamed"}, "bio": {"studying go"}, "avatar": {"🦉"}})
	expectRedirect(t, w, "/settings?success=1")

	var u models.User
	a.db.First(&u, a.user.ID)
	if u.Username != "renamed" || u.Avatar != "🦉" {
		t.Errorf("settings not saved: %+v", u)
	}
	if !u.IsPaid {
		t.Error("settings update must not touch the paid flag")
	}

	w = c.postForm("/settings", url.Values{"username": {"renamed-again"}, "bio": {"changed"}, "old_password": {"nope"}, "new_password": {"another-password"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for wrong current password, got %d", w.Code)
	}
	a.db.First(&u, a.user.ID)
	if u.Username != "renamed" || u.Bio != "studying go" {
		t.Errorf("rejected settings form was partly saved: %+v", u)
	}

	w = c.postForm("/settings", url.Values{"username": {"renamed"}, "old_password": {testPassword}, "new_password": {"another-password"}})
	expectRedirect(t, w, "/settings?success=1")
	bad := a.anonymous().postForm("/login", url.Values{"email": {a.user.Email}, "password": {testPassword}})
	if bad.Code != http.StatusUnauthorized {
		t.Errorf("old password still works after change: %d", bad.Code)
	}
}

func TestNotificationsFlow(t *testing.T) {
	a := newApp(t)
	a.login(a.other).postForm(roomPath(a.generalRoom), url.Values{"body": {"hi host"}})

	host := a.login(a.user)
	w := host.get("/notifications")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "General Room") {
		t.Error("notification does not mention the room")
	}

	expectRedirect(t, host.postForm("/notifications/read-all", nil), "/notifications")
	var unread int64
	a.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", a.user.ID, false).Count(&unread)
	if unread != 0 {
		t.Errorf("Expected 0 unread, got %d", unread)
	}
}

package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"haak-weather/internal/modules/weather/presenter"
	"haak-weather/internal/modules/weather/units"
)

func newTestSessions(idle time.Duration) (*Sessions, *[]string, *time.Time) {
	return newLimitedSessions(idle, 100)
}

func newLimitedSessions(idle time.Duration, limit int) (*Sessions, *[]string, *time.Time) {
	var created []string
	now := fixedNow
	s := NewSessions(func(stationID string, settings Settings) *presenter.Presenter {
		created = append(created, stationID)
		return presenter.New(&fakeFetcher{}, settings.Units(), presenter.Options{Logger: discard, Window: settings.Timeframe})
	}, idle, limit, discard)
	s.now = func() time.Time { return now }
	return s, &created, &now
}

func sessionRequest(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", sessionCookieName)
	return nil
}

func TestSessions_Presenter(t *testing.T) {
	s, created, _ := newTestSessions(30 * time.Minute)

	rec := httptest.NewRecorder()
	first := s.Presenter(rec, sessionRequest(nil), "1")
	cookie := sessionCookie(t, rec)

	if _, err := uuid.Parse(cookie.Value); err != nil {
		t.Errorf("cookie value %q is not a UUID: %v", cookie.Value, err)
	}
	if !cookie.HttpOnly || cookie.Path != "/" || cookie.MaxAge != 1800 || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie = %+v; want HttpOnly, Path /, MaxAge 1800, SameSite Lax", cookie)
	}

	rec = httptest.NewRecorder()
	if again := s.Presenter(rec, sessionRequest(cookie), "1"); again != first {
		t.Error("same session and station returned a different presenter")
	}
	if got := sessionCookie(t, rec).Value; got != cookie.Value {
		t.Errorf("cookie value changed to %q; want %q", got, cookie.Value)
	}

	if other := s.Presenter(httptest.NewRecorder(), sessionRequest(cookie), "2"); other == first {
		t.Error("different station shared a presenter")
	}
	if len(*created) != 2 {
		t.Errorf("presenters created = %v; want 2", *created)
	}

	if stranger := s.Presenter(httptest.NewRecorder(), sessionRequest(nil), "1"); stranger == first {
		t.Error("request without cookie reused another session's presenter")
	}
	if n := s.Len(); n != 2 {
		t.Errorf("Len() = %d; want 2", n)
	}
}

func TestSessions_PresenterRejectsForeignCookies(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not a uuid", value: "admin"},
		{name: "unknown uuid", value: uuid.NewString()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestSessions(time.Minute)
			rec := httptest.NewRecorder()
			s.Presenter(rec, sessionRequest(&http.Cookie{Name: sessionCookieName, Value: tt.value}), "1")
			if got := sessionCookie(t, rec).Value; got == tt.value {
				t.Errorf("session id %q was adopted from the request", got)
			}
		})
	}
}

func TestSessions_IdleExpiry(t *testing.T) {
	s, _, now := newTestSessions(10 * time.Minute)

	rec := httptest.NewRecorder()
	first := s.Presenter(rec, sessionRequest(nil), "1")
	cookie := sessionCookie(t, rec)

	*now = now.Add(9 * time.Minute)
	if p := s.Presenter(httptest.NewRecorder(), sessionRequest(cookie), "1"); p != first {
		t.Fatal("session expired before the idle timeout")
	}

	*now = now.Add(11 * time.Minute)
	rec = httptest.NewRecorder()
	if p := s.Presenter(rec, sessionRequest(cookie), "1"); p == first {
		t.Error("expired session was reused")
	}
	if sessionCookie(t, rec).Value == cookie.Value {
		t.Error("expired session kept its id")
	}
	if n := s.Len(); n != 1 {
		t.Errorf("Len() = %d; want 1", n)
	}
}

func TestSessions_Sweep(t *testing.T) {
	s, _, now := newTestSessions(5 * time.Minute)

	s.Presenter(httptest.NewRecorder(), sessionRequest(nil), "1")
	*now = now.Add(4 * time.Minute)
	s.Presenter(httptest.NewRecorder(), sessionRequest(nil), "1")

	if removed := s.Sweep(); removed != 0 {
		t.Errorf("Sweep() = %d; want 0", removed)
	}
	*now = now.Add(2 * time.Minute)
	if removed := s.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d; want 1", removed)
	}
	if n := s.Len(); n != 1 {
		t.Errorf("Len() = %d; want 1", n)
	}
}

func TestSessions_LimitCapsCookielessClients(t *testing.T) {
	s, created, now := newLimitedSessions(time.Hour, 5)

	for i := 0; i < 50; i++ {
		*now = now.Add(time.Second)
		s.Presenter(httptest.NewRecorder(), sessionRequest(nil), "1")
		if n := s.Len(); n > 5 {
			t.Fatalf("after %d requests Len() = %d; want at most 5", i+1, n)
		}
	}
	if n := s.Len(); n != 5 {
		t.Errorf("Len() = %d; want 5", n)
	}
	if len(*created) != 50 {
		t.Errorf("presenters created = %d; want 50", len(*created))
	}
}

func TestSessions_LimitEvictsLeastRecentlyUsed(t *testing.T) {
	s, _, now := newLimitedSessions(time.Hour, 2)

	recA := httptest.NewRecorder()
	a := s.Presenter(recA, sessionRequest(nil), "1")
	cookieA := sessionCookie(t, recA)

	*now = now.Add(time.Minute)
	recB := httptest.NewRecorder()
	s.Presenter(recB, sessionRequest(nil), "1")
	cookieB := sessionCookie(t, recB)

	*now = now.Add(time.Minute)
	s.Presenter(httptest.NewRecorder(), sessionRequest(cookieA), "1")

	*now = now.Add(time.Minute)
	s.Presenter(httptest.NewRecorder(), sessionRequest(nil), "1")

	if n := s.Len(); n != 2 {
		t.Fatalf("Len() = %d; want 2", n)
	}
	if p := s.Presenter(httptest.NewRecorder(), sessionRequest(cookieA), "1"); p != a {
		t.Error("recently used session was evicted")
	}
	rec := httptest.NewRecorder()
	s.Presenter(rec, sessionRequest(cookieB), "1")
	if sessionCookie(t, rec).Value == cookieB.Value {
		t.Error("least recently used session survived eviction")
	}
}

func TestSessions_UpdateSettings(t *testing.T) {
	s, created, _ := newTestSessions(time.Hour)

	rec := httptest.NewRecorder()
	one := s.Presenter(rec, sessionRequest(nil), "1")
	cookie := sessionCookie(t, rec)
	s.Presenter(httptest.NewRecorder(), sessionRequest(cookie), "2")

	if got := s.Settings(httptest.NewRecorder(), sessionRequest(cookie)); got != DefaultSettings() {
		t.Fatalf("Settings() = %+v; want defaults", got)
	}

	saved := s.UpdateSettings(httptest.NewRecorder(), sessionRequest(cookie), "1", func(st *Settings) {
		st.Temperature = units.Kelvin
	})
	if saved.Temperature != units.Kelvin || saved.Pressure != units.Bar {
		t.Errorf("UpdateSettings() = %+v", saved)
	}

	if p := s.Presenter(httptest.NewRecorder(), sessionRequest(cookie), "1"); p != one {
		t.Error("kept station's presenter was rebuilt")
	}
	two := s.Presenter(httptest.NewRecorder(), sessionRequest(cookie), "2")
	if two.Units().Temperature != units.Kelvin {
		t.Errorf("rebuilt presenter units = %+v; want Kelvin", two.Units())
	}
	if len(*created) != 3 {
		t.Errorf("presenters created = %v; want 3", *created)
	}

	if other := s.Settings(httptest.NewRecorder(), sessionRequest(nil)); other != DefaultSettings() {
		t.Errorf("new session settings = %+v; want defaults", other)
	}
}

func TestSessions_RunStopsOnCancel(t *testing.T) {
	s, _, _ := newTestSessions(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

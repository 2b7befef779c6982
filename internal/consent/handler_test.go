package consent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSetCookies(t *testing.T) {
	h := NewHandler(false)

	body := `{"essential":false,"analytics":true,"marketing":false}`
	req := httptest.NewRequest(http.MethodPost, "/cookies/setcookies", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SetCookies(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected the consent cookie to be set")
	}
	if got, want := cookie.MaxAge, int((365 * 24 * time.Hour).Seconds()); got != want {
		t.Errorf("MaxAge = %d, want %d", got, want)
	}
	if !cookie.HttpOnly {
		t.Error("consent cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("SameSite = %v, want Strict", cookie.SameSite)
	}

	// Round-trip through the parser the rest of the app uses
	readReq := httptest.NewRequest(http.MethodGet, "/", nil)
	readReq.AddCookie(&http.Cookie{Name: CookieName, Value: cookie.Value})
	prefs, err := ReadPreferences(readReq)
	if err != nil {
		t.Fatalf("read preferences: %v", err)
	}
	if !prefs.Essential {
		t.Error("the essential flag must be forced on")
	}
	if !prefs.Analytics || prefs.Marketing {
		t.Errorf("preferences = %+v", prefs)
	}
}

func TestSetCookies_InvalidBody(t *testing.T) {
	h := NewHandler(false)

	req := httptest.NewRequest(http.MethodPost, "/cookies/setcookies", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.SetCookies(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("invalid bodies must not set a cookie")
	}
}

func TestCheckConsent(t *testing.T) {
	h := NewHandler(false)

	check := func(t *testing.T, req *http.Request, want bool) {
		t.Helper()
		rec := httptest.NewRecorder()
		h.CheckConsent(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp map[string]bool
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["hasConsent"] != want {
			t.Errorf("hasConsent = %v, want %v", resp["hasConsent"], want)
		}
	}

	t.Run("no cookie", func(t *testing.T) {
		check(t, httptest.NewRequest(http.MethodGet, "/cookies/check-cookie-consent", nil), false)
	})

	t.Run("cookie present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cookies/check-cookie-consent", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "%7B%22essential%22%3Atrue%7D"})
		check(t, req, true)
	})

	t.Run("empty cookie value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cookies/check-cookie-consent", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
		check(t, req, false)
	})
}

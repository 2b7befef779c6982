package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"projectadmin/internal/logging"
	"projectadmin/internal/web"
)

type handlerFixture struct {
	handler  *Handler
	service  *Service
	users    *fakeUserStore
	sessions *memSessionStore
	limiter  *fakeLimiter
	recorder *fakeRecorder
	google   *fakeOAuthProvider
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	users := newFakeUserStore()
	sessions := newMemSessionStore()
	google := &fakeOAuthProvider{}
	service := newTestService(t, users, sessions, google)

	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	limiter := &fakeLimiter{}
	recorder := newFakeRecorder()
	handler := NewHandler(service, limiter, recorder, renderer, logging.NewLogger(true), false)

	return &handlerFixture{
		handler:  handler,
		service:  service,
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		recorder: recorder,
		google:   google,
	}
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func signupForm() url.Values {
	return url.Values{
		"first_name":       {"A"},
		"last_name":        {"B"},
		"email":            {"a@x.com"},
		"password":         {"passw0rd"},
		"confirm_password": {"passw0rd"},
		"terms":            {"on"},
	}
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignup_Success(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != LoginPath {
		t.Errorf("redirect target = %q, want %q", loc, LoginPath)
	}
	if f.users.count() != 1 {
		t.Errorf("expected 1 user, got %d", f.users.count())
	}
	if f.sessions.count() != 0 {
		t.Error("signup must not sign the user in")
	}
	if cookieByName(t, rec, flashCookieName) == nil {
		t.Error("expected a flash notice for the login page")
	}
	if f.recorder.signups["success"] != 1 {
		t.Errorf("signup metrics = %v", f.recorder.signups)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("first signup: expected 303, got %d", rec.Code)
	}

	form := signupForm()
	form.Set("email", "A@X.COM")
	rec = httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", form))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected the form to re-render with 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already registered") {
		t.Error("expected the duplicate email message in the form")
	}
	if f.users.count() != 1 {
		t.Errorf("expected 1 user, got %d", f.users.count())
	}
}

func TestSignup_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(url.Values)
		message string
	}{
		{"missing first name", func(v url.Values) { v.Set("first_name", "") }, "First name is required"},
		{"invalid email", func(v url.Values) { v.Set("email", "not-an-email") }, "Email address is not valid"},
		{"short password", func(v url.Values) {
			v.Set("password", "short")
			v.Set("confirm_password", "short")
		}, "at least 8 characters"},
		{"password mismatch", func(v url.Values) { v.Set("confirm_password", "different1") }, "Passwords do not match"},
		{"terms not accepted", func(v url.Values) { v.Del("terms") }, "You must accept the terms"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture(t)

			form := signupForm()
			tc.mutate(form)
			rec := httptest.NewRecorder()
			f.handler.Signup(rec, postForm("/auth/signup", form))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected the form to re-render with 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.message) {
				t.Errorf("expected %q in the re-rendered form", tc.message)
			}
			if f.users.count() != 0 {
				t.Error("invalid submissions must not create users")
			}
		})
	}
}

func TestSignup_RateLimited(t *testing.T) {
	f := newHandlerFixture(t)
	f.limiter.exceeded = true

	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if f.users.count() != 0 {
		t.Error("rate-limited submissions must not create users")
	}
}

func TestLogin_Success(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))

	form := url.Values{"email": {"a@x.com"}, "password": {"passw0rd"}}
	rec = httptest.NewRecorder()
	f.handler.Login(rec, postForm("/auth/login", form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != AdminHomePath {
		t.Errorf("redirect target = %q, want %q", loc, AdminHomePath)
	}

	cookie := cookieByName(t, rec, SessionCookieName)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.MaxAge != 0 {
		t.Errorf("non-remembered cookie must be a browser-session cookie, got MaxAge=%d", cookie.MaxAge)
	}
	if _, err := f.service.tokens.VerifyToken(cookie.Value); err != nil {
		t.Errorf("session cookie does not carry a valid token: %v", err)
	}
	if f.recorder.logins["local/success"] != 1 {
		t.Errorf("login metrics = %v", f.recorder.logins)
	}
}

func TestLogin_RememberMePersistsCookie(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))

	form := url.Values{"email": {"a@x.com"}, "password": {"passw0rd"}, "remember_me": {"on"}}
	rec = httptest.NewRecorder()
	f.handler.Login(rec, postForm("/auth/login", form))

	cookie := cookieByName(t, rec, SessionCookieName)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if got, want := cookie.MaxAge, int((30 * 24 * time.Hour).Seconds()); got != want {
		t.Errorf("remembered cookie MaxAge = %d, want %d", got, want)
	}
}

func TestLogin_InvalidCredentialsMessage(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))

	// Same message whether the email is unknown or the password is wrong
	for _, form := range []url.Values{
		{"email": {"nobody@x.com"}, "password": {"passw0rd"}},
		{"email": {"a@x.com"}, "password": {"wrong-password"}},
	} {
		rec = httptest.NewRecorder()
		f.handler.Login(rec, postForm("/auth/login", form))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected the form to re-render with 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Invalid email or password") {
			t.Error("expected the generic failure message")
		}
		if cookieByName(t, rec, SessionCookieName) != nil {
			t.Error("failed logins must not set a session cookie")
		}
	}
}

func TestLogout_RevokesSessionAndClearsCookie(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))

	rec = httptest.NewRecorder()
	f.handler.Login(rec, postForm("/auth/login", url.Values{"email": {"a@x.com"}, "password": {"passw0rd"}}))
	session := cookieByName(t, rec, SessionCookieName)
	if session == nil {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Value})
	rec = httptest.NewRecorder()
	f.handler.Logout(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != LoginPath {
		t.Errorf("redirect target = %q, want %q", loc, LoginPath)
	}
	if f.sessions.count() != 0 {
		t.Error("expected the session to be revoked")
	}
	cleared := cookieByName(t, rec, SessionCookieName)
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("expected the session cookie to be cleared")
	}

	// Logout without any cookie still redirects cleanly
	rec = httptest.NewRecorder()
	f.handler.Logout(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
}

func TestGoogleLogin_RedirectsToProvider(t *testing.T) {
	f := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.GoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google-login", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	state := cookieByName(t, rec, stateCookieName)
	if state == nil || state.Value == "" {
		t.Fatal("expected a state cookie")
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "state="+state.Value) {
		t.Errorf("provider URL %q does not carry the state cookie value", loc)
	}
}

func TestGoogleCallback_Success(t *testing.T) {
	f := newHandlerFixture(t)
	f.google.profile = &ExternalProfile{
		Subject:   "sub-1",
		Email:     "g@x.com",
		FirstName: "G",
		LastName:  "H",
		Name:      "G H",
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/google-response?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "xyz"})
	rec := httptest.NewRecorder()
	f.handler.GoogleCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != AdminHomePath {
		t.Errorf("redirect target = %q, want %q", loc, AdminHomePath)
	}

	cookie := cookieByName(t, rec, SessionCookieName)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if cookie.MaxAge == 0 {
		t.Error("external logins must set a persistent cookie")
	}
	if f.users.count() != 1 {
		t.Errorf("expected 1 user, got %d", f.users.count())
	}
	if f.recorder.logins["google/success"] != 1 {
		t.Errorf("login metrics = %v", f.recorder.logins)
	}
}

func TestGoogleCallback_Failures(t *testing.T) {
	profile := &ExternalProfile{Subject: "sub-1", Email: "g@x.com", Name: "G H"}

	cases := []struct {
		name    string
		target  string
		cookie  string
		profile *ExternalProfile
		message string
	}{
		{"provider error param", "/auth/google-response?error=access_denied&state=xyz", "xyz", profile, googleFailureMessage},
		{"missing code", "/auth/google-response?state=xyz", "xyz", profile, googleFailureMessage},
		{"state mismatch", "/auth/google-response?code=abc&state=evil", "xyz", profile, googleFailureMessage},
		{"missing state cookie", "/auth/google-response?code=abc&state=xyz", "", profile, googleFailureMessage},
		{"profile without email", "/auth/google-response?code=abc&state=xyz", "xyz",
			&ExternalProfile{Subject: "sub-1", Name: "No Email"}, missingEmailMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.google.profile = tc.profile

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			f.handler.GoogleCallback(rec, req)

			if rec.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != LoginPath {
				t.Errorf("redirect target = %q, want %q", loc, LoginPath)
			}
			if cookieByName(t, rec, SessionCookieName) != nil {
				t.Error("failed callbacks must not set a session cookie")
			}
			if f.users.count() != 0 {
				t.Error("failed callbacks must not create users")
			}

			flash := cookieByName(t, rec, flashErrorCookieName)
			if flash == nil {
				t.Fatal("expected a flash error for the login page")
			}
			decoded, err := base64.RawURLEncoding.DecodeString(flash.Value)
			if err != nil {
				t.Fatalf("decode flash: %v", err)
			}
			if string(decoded) != tc.message {
				t.Errorf("flash = %q, want %q", string(decoded), tc.message)
			}
		})
	}
}

func TestLoginPage_ShowsFlashNotice(t *testing.T) {
	f := newHandlerFixture(t)

	// Capture the flash cookie a successful signup sets
	rec := httptest.NewRecorder()
	f.handler.Signup(rec, postForm("/auth/signup", signupForm()))
	flash := cookieByName(t, rec, flashCookieName)
	if flash == nil {
		t.Fatal("expected a flash cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: flash.Value})
	rec = httptest.NewRecorder()
	f.handler.LoginPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), signupSuccessMessage) {
		t.Error("expected the signup notice on the login page")
	}

	// The flash cookie is consumed on read
	if c := cookieByName(t, rec, flashCookieName); c == nil || c.MaxAge != -1 {
		t.Error("expected the flash cookie to be cleared")
	}
}

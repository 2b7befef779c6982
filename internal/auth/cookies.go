package auth

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"
)

const (
	// SessionCookieName holds the signed PASETO session token
	SessionCookieName = "admin_session"
	// stateCookieName holds the OAuth CSRF state between redirect and callback
	stateCookieName = "oauth_state"
	// flashCookieName carries one-shot notices across a redirect
	flashCookieName = "flash"
	// flashErrorCookieName carries one-shot error notices across a redirect
	flashErrorCookieName = "flash_error"

	stateCookieMaxAge = 10 * time.Minute
)

// SetSessionCookie writes the session token cookie. Remembered sessions
// get a persisted cookie matching the fixed server-side TTL; others get a
// browser-session cookie while the server-side record slides.
func SetSessionCookie(w http.ResponseWriter, token string, remember bool, ttl time.Duration, isProduction bool) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie expires the session token cookie
func ClearSessionCookie(w http.ResponseWriter, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionToken reads the session token from the request cookie
func GetSessionToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// SetStateCookie stores the OAuth state value for callback verification.
// SameSite is Lax so the cookie survives the top-level redirect back from
// the provider.
func SetStateCookie(w http.ResponseWriter, state string, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopStateCookie reads and clears the OAuth state cookie
func PopStateCookie(w http.ResponseWriter, r *http.Request, isProduction bool) string {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return cookie.Value
}

// GenerateState creates a random OAuth state value
func GenerateState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SetFlash stores a one-shot notice shown on the next login page render
func SetFlash(w http.ResponseWriter, message string) {
	setFlashCookie(w, flashCookieName, message)
}

// SetFlashError stores a one-shot error notice
func SetFlashError(w http.ResponseWriter, message string) {
	setFlashCookie(w, flashErrorCookieName, message)
}

// PopFlash reads and clears both flash cookies, returning (notice, error)
func PopFlash(w http.ResponseWriter, r *http.Request) (string, string) {
	return popFlashCookie(w, r, flashCookieName), popFlashCookie(w, r, flashErrorCookieName)
}

func setFlashCookie(w http.ResponseWriter, name, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlashCookie(w http.ResponseWriter, r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(decoded)
}

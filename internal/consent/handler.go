// Package consent implements the cookie-consent endpoints. The session
// cookie is essential and exempt; analytics and marketing follow the
// stored preference.
package consent

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"projectadmin/internal/httputil"
	"projectadmin/internal/logging"
)

// CookieName is the consent preference cookie
const CookieName = "cookieConsent"

const cookieMaxAge = 365 * 24 * time.Hour

// Preferences are the stored consent flags
type Preferences struct {
	Essential bool `json:"essential"`
	Analytics bool `json:"analytics"`
	Marketing bool `json:"marketing"`
}

// Handler contains the HTTP handlers for the /cookies routes
type Handler struct {
	isProduction bool
}

func NewHandler(isProduction bool) *Handler {
	return &Handler{isProduction: isProduction}
}

// SetCookies stores the consent preferences in a 1-year cookie
func (h *Handler) SetCookies(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var prefs Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		logger.Warn("invalid consent request body", "error", err.Error())
		httputil.RespondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// The essential flag is not optional
	prefs.Essential = true

	encoded, err := json.Marshal(prefs)
	if err != nil {
		logger.Error("failed to encode consent preferences", "error", err.Error())
		httputil.RespondError(w, "failed to store consent", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(string(encoded)),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteStrictMode,
	})

	httputil.RespondJSON(w, map[string]string{"message": "consent stored"}, http.StatusOK)
}

// CheckConsent reports whether a consent preference cookie is present
func (h *Handler) CheckConsent(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(CookieName)
	hasConsent := err == nil && cookie.Value != ""

	httputil.RespondJSON(w, map[string]bool{"hasConsent": hasConsent}, http.StatusOK)
}

// ReadPreferences parses the consent cookie from a request
func ReadPreferences(r *http.Request) (*Preferences, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, err
	}

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil, err
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, err
	}

	return &prefs, nil
}

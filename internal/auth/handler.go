package auth

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"projectadmin/internal/logging"
	"projectadmin/internal/metrics"
	"projectadmin/internal/user"
	"projectadmin/internal/web"
)

// AdminHomePath is the protected landing page after a successful login
const AdminHomePath = "/admin"

const (
	tooManyAttemptsMessage = "Too many attempts, please try again later"
	genericFailureMessage  = "Something went wrong, please try again"
	googleFailureMessage   = "Google authentication failed."
	missingEmailMessage    = "Could not get email from Google account."
	signupSuccessMessage   = "Account created successfully! Please log in."
)

// Handler contains the HTTP handlers for the authentication routes
type Handler struct {
	service      *Service
	limiter      IPLimiter
	recorder     metrics.Recorder
	renderer     *web.Renderer
	logger       *logging.Logger
	isProduction bool
}

func NewHandler(service *Service, limiter IPLimiter, recorder metrics.Recorder, renderer *web.Renderer, logger *logging.Logger, isProduction bool) *Handler {
	return &Handler{
		service:      service,
		limiter:      limiter,
		recorder:     recorder,
		renderer:     renderer,
		logger:       logger,
		isProduction: isProduction,
	}
}

// SignupPage renders the signup form
func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "signup.html", web.SignupPage{Errors: map[string]string{}})
}

// Signup handles the signup form submission. Field-level validation
// errors re-render the form; success redirects to the login page without
// signing the user in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid signup form", "error", err.Error())
		h.renderer.Render(w, http.StatusBadRequest, "signup.html", web.SignupPage{
			Errors: map[string]string{"Form": genericFailureMessage},
		})
		return
	}

	values := web.SignupValues{
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
	}
	password := r.PostFormValue("password")
	confirmPassword := r.PostFormValue("confirm_password")
	termsAccepted := r.PostFormValue("terms") == "true" || r.PostFormValue("terms") == "on"

	if exceeded := h.rateLimit(r, "signup"); exceeded {
		h.renderer.Render(w, http.StatusTooManyRequests, "signup.html", web.SignupPage{
			Errors: map[string]string{"Form": tooManyAttemptsMessage},
			Values: values,
		})
		return
	}

	fieldErrors := validateSignup(values, password, confirmPassword, termsAccepted)
	if len(fieldErrors) > 0 {
		h.recorder.RecordSignup("invalid")
		h.renderer.Render(w, http.StatusOK, "signup.html", web.SignupPage{
			Errors: fieldErrors,
			Values: values,
		})
		return
	}

	logger = logger.WithFields(map[string]any{"email": values.Email})

	_, err := h.service.Register(r.Context(), values.FirstName, values.LastName, values.Email, password)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			logger.Warn("signup failed: email already registered")
			h.recorder.RecordSignup("duplicate")
			h.renderer.Render(w, http.StatusOK, "signup.html", web.SignupPage{
				Errors: map[string]string{"Email": "Email address is already registered"},
				Values: values,
			})
			return
		}
		logger.Error("signup failed: internal error", "error", err.Error())
		h.recorder.RecordSignup("error")
		h.renderer.Render(w, http.StatusInternalServerError, "signup.html", web.SignupPage{
			Errors: map[string]string{"Form": genericFailureMessage},
			Values: values,
		})
		return
	}

	logger.Info("user signed up")
	h.recorder.RecordSignup("success")

	SetFlash(w, signupSuccessMessage)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// LoginPage renders the login form with any pending flash notices
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	notice, flashErr := PopFlash(w, r)
	h.renderer.Render(w, http.StatusOK, "login.html", web.LoginPage{
		Notice: notice,
		Error:  flashErr,
	})
}

// Login handles the login form submission. Unknown emails and wrong
// passwords share one generic message so accounts cannot be enumerated.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid login form", "error", err.Error())
		h.renderer.Render(w, http.StatusBadRequest, "login.html", web.LoginPage{Error: genericFailureMessage})
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	rememberMe := r.PostFormValue("remember_me") == "true" || r.PostFormValue("remember_me") == "on"

	if exceeded := h.rateLimit(r, "login"); exceeded {
		h.renderer.Render(w, http.StatusTooManyRequests, "login.html", web.LoginPage{
			Error: tooManyAttemptsMessage,
			Email: email,
		})
		return
	}

	logger = logger.WithFields(map[string]any{"email": email})

	issued, err := h.service.Login(r.Context(), email, password, rememberMe)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			h.recorder.RecordLogin("local", "failure")
			h.renderer.Render(w, http.StatusOK, "login.html", web.LoginPage{
				Error: "Invalid email or password",
				Email: email,
			})
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		h.recorder.RecordLogin("local", "error")
		h.renderer.Render(w, http.StatusInternalServerError, "login.html", web.LoginPage{
			Error: genericFailureMessage,
			Email: email,
		})
		return
	}

	logger.Info("user logged in", "user_id", issued.User.ID, "remember", issued.Remember)
	h.recorder.RecordLogin("local", "success")

	SetSessionCookie(w, issued.Token, issued.Remember, issued.TTL, h.isProduction)
	http.Redirect(w, r, AdminHomePath, http.StatusSeeOther)
}

// Logout revokes the session and clears the cookie. Logging out without a
// session, or twice, is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if token, err := GetSessionToken(r); err == nil && token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			logger.Warn("failed to revoke session", "error", err.Error())
			// Continue - still clear the cookie
		}
	}

	ClearSessionCookie(w, h.isProduction)
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// GoogleLogin begins the OAuth challenge: set the state cookie and
// redirect to the provider.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	state, err := GenerateState()
	if err != nil {
		logger.Error("failed to generate oauth state", "error", err.Error())
		SetFlashError(w, googleFailureMessage)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	SetStateCookie(w, state, h.isProduction)
	http.Redirect(w, r, h.service.google.LoginURL(state), http.StatusFound)
}

// GoogleCallback completes the OAuth challenge. Every failure recovers
// into a login-page redirect with a notice; nothing propagates as a fault.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	storedState := PopStateCookie(w, r, h.isProduction)

	if errParam := query.Get("error"); errParam != "" || code == "" {
		logger.Warn("google login denied by provider", "error", errParam)
		h.recorder.RecordLogin("google", "denied")
		SetFlashError(w, googleFailureMessage)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	if state == "" || state != storedState {
		logger.Warn("google login state mismatch")
		h.recorder.RecordLogin("google", "denied")
		SetFlashError(w, googleFailureMessage)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	issued, err := h.service.LoginWithGoogle(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingEmail):
			logger.Warn("google login failed: no email claim")
			h.recorder.RecordLogin("google", "missing_email")
			SetFlashError(w, missingEmailMessage)
		case errors.Is(err, ErrProviderDenied):
			logger.Warn("google login failed: provider error", "error", err.Error())
			h.recorder.RecordLogin("google", "denied")
			SetFlashError(w, googleFailureMessage)
		default:
			// Multi-step upsert-then-issue: log the detail, show a generic notice
			logger.Error("google login failed: internal error", "error", err.Error())
			h.recorder.RecordLogin("google", "error")
			SetFlashError(w, googleFailureMessage)
		}
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	logger.Info("user logged in via google", "user_id", issued.User.ID)
	h.recorder.RecordLogin("google", "success")

	SetSessionCookie(w, issued.Token, issued.Remember, issued.TTL, h.isProduction)
	http.Redirect(w, r, AdminHomePath, http.StatusFound)
}

// AdminHome renders the protected landing page
func (h *Handler) AdminHome(w http.ResponseWriter, r *http.Request) {
	name, _ := GetUserNameFromContext(r.Context())
	email, _ := GetUserEmailFromContext(r.Context())

	h.renderer.Render(w, http.StatusOK, "home.html", web.HomePage{
		Name:  name,
		Email: email,
	})
}

// rateLimit checks and records a request against the IP's window for the
// given purpose. Limiter errors are logged and fail open.
func (h *Handler) rateLimit(r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.limiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		return true
	}

	if err := h.limiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	return false
}

// validateSignup applies the signup form rules and returns field errors
func validateSignup(values web.SignupValues, password, confirmPassword string, termsAccepted bool) map[string]string {
	fieldErrors := make(map[string]string)

	if values.FirstName == "" {
		fieldErrors["FirstName"] = "First name is required"
	} else if len(values.FirstName) > 50 {
		fieldErrors["FirstName"] = "First name must be at most 50 characters"
	}

	if values.LastName == "" {
		fieldErrors["LastName"] = "Last name is required"
	} else if len(values.LastName) > 50 {
		fieldErrors["LastName"] = "Last name must be at most 50 characters"
	}

	if values.Email == "" {
		fieldErrors["Email"] = "Email is required"
	} else if len(values.Email) > 100 {
		fieldErrors["Email"] = "Email must be at most 100 characters"
	} else if _, err := mail.ParseAddress(values.Email); err != nil {
		fieldErrors["Email"] = "Email address is not valid"
	}

	if password == "" {
		fieldErrors["Password"] = "Password is required"
	} else if len(password) < 8 {
		fieldErrors["Password"] = "Password must be at least 8 characters"
	}

	if confirmPassword != password {
		fieldErrors["ConfirmPassword"] = "Passwords do not match"
	}

	if !termsAccepted {
		fieldErrors["Terms"] = "You must accept the terms of service"
	}

	return fieldErrors
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

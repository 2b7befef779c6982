// Package web renders the handful of unstyled views the auth flows need.
// The admin panel's real screens live outside this service.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

// LoginPage is the data for the login form view
type LoginPage struct {
	Notice string
	Error  string
	Email  string
}

// SignupPage is the data for the signup form view. Errors is keyed by
// field name; Values echoes the submitted input back into the form.
type SignupPage struct {
	Errors map[string]string
	Values SignupValues
}

// SignupValues are the submitted signup form fields
type SignupValues struct {
	FirstName string
	LastName  string
	Email     string
}

// HomePage is the data for the protected landing view
type HomePage struct {
	Name  string
	Email string
}

// Renderer executes the embedded HTML templates
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render writes the named template with the given status code
func (r *Renderer) Render(w http.ResponseWriter, statusCode int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("ERROR: failed to render template %s: %v", name, err)
	}
}

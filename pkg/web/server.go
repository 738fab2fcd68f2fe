// Package web serves the browser shell: a server-rendered sign-in form,
// the prompt submission form, and the response panel. No client-side
// framework; every state change is a form post and a re-render. The only
// state that survives a reload is the session cookie.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonyxmella66/prompt-tester/pkg/api"
	"github.com/tonyxmella66/prompt-tester/pkg/client"
	"github.com/tonyxmella66/prompt-tester/pkg/extract"
	"github.com/tonyxmella66/prompt-tester/pkg/session"
)

//go:embed templates/*.tmpl templates/style.css
var templatesFS embed.FS

// Config holds browser shell settings.
type Config struct {
	// GatewayURL is the base URL the composer posts invocations to.
	GatewayURL string

	// Provider is the auth provider client used for sign-in and sign-out.
	Provider *session.Client

	// CookieName names the session token cookie. Default: "pt_session".
	CookieName string

	// CookieSecure sets the Secure flag on cookies.
	CookieSecure bool

	// InvokeTimeout bounds a prompt submission. Default: 120s.
	InvokeTimeout time.Duration
}

// Server renders the browser shell.
type Server struct {
	templates     *template.Template
	provider      *session.Client
	gatewayURL    string
	cookieName    string
	cookieSecure  bool
	invokeTimeout time.Duration
	css           template.CSS
}

// signinView is the data for the sign-in page.
type signinView struct {
	CSS   template.CSS
	Error string
}

// mainView is the data for the prompt page. Form fields echo what the
// user submitted; the response block is one of idle, error, or loaded.
type mainView struct {
	CSS   template.CSS
	Email string

	Models      []string
	Prompt      string
	Model       string
	Temperature string
	WebSearch   bool
	ShowRaw     bool

	HasResponse   bool
	ErrorMessage  string
	ExtractedText string
	RawJSON       string
}

// NewServer creates the browser shell server.
func NewServer(cfg Config) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	rawCSS, err := templatesFS.ReadFile("templates/style.css")
	if err != nil {
		return nil, err
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "pt_session"
	}
	invokeTimeout := cfg.InvokeTimeout
	if invokeTimeout == 0 {
		invokeTimeout = 120 * time.Second
	}

	return &Server{
		templates:     tmpl,
		provider:      cfg.Provider,
		gatewayURL:    cfg.GatewayURL,
		cookieName:    cookieName,
		cookieSecure:  cfg.CookieSecure,
		invokeTimeout: invokeTimeout,
		css:           template.CSS(rawCSS),
	}, nil
}

// Handler returns the shell's route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /signin", s.handleSignIn)
	mux.HandleFunc("POST /signout", s.handleSignOut)
	mux.HandleFunc("POST /invoke", s.handleInvoke)
	return mux
}

// handleIndex renders the sign-in form or, with a session cookie present,
// the prompt form in its idle state.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	token, email := s.sessionCookies(r)
	if token == "" {
		s.render(w, "signin", signinView{CSS: s.css})
		return
	}
	s.render(w, "main", s.idleView(email))
}

// handleSignIn exchanges form credentials for a session and stores the
// access token in an HttpOnly cookie.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, "signin", signinView{CSS: s.css, Error: "Invalid form submission"})
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	sess, err := s.provider.SignIn(r.Context(), email, password)
	if err != nil {
		slog.Warn("sign in failed", "email", email, "error", err)
		s.render(w, "signin", signinView{CSS: s.css, Error: "Sign in failed. Check your credentials."})
		return
	}

	s.setCookie(w, s.cookieName, sess.AccessToken)
	s.setCookie(w, s.cookieName+"_email", sess.User.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSignOut revokes the session with the provider and clears cookies.
// The cookies are cleared even when revocation fails.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token, _ := s.sessionCookies(r)
	if token != "" {
		if err := s.provider.Revoke(r.Context(), token); err != nil {
			slog.Warn("sign out revocation failed", "error", err)
		}
	}

	s.clearCookie(w, s.cookieName)
	s.clearCookie(w, s.cookieName+"_email")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleInvoke submits the prompt form through the composer and renders
// the outcome. Temperature is validated before any network call.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	token, email := s.sessionCookies(r)
	if token == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		view := s.idleView(email)
		view.ErrorMessage = "Invalid form submission"
		s.render(w, "main", view)
		return
	}

	view := mainView{
		CSS:         s.css,
		Email:       email,
		Models:      api.Models,
		Prompt:      r.FormValue("prompt"),
		Model:       r.FormValue("model"),
		Temperature: r.FormValue("temperature"),
		WebSearch:   r.FormValue("web_search") != "",
		ShowRaw:     r.FormValue("view") == "raw",
	}

	temperature, err := api.ParseTemperature(view.Temperature)
	if err != nil {
		view.ErrorMessage = err.Error()
		s.render(w, "main", view)
		return
	}

	composer, err := client.New(client.Config{
		Endpoint: s.gatewayURL,
		Timeout:  s.invokeTimeout,
	}, session.Static(token, session.User{Email: email}))
	if err != nil {
		slog.Error("creating composer", "error", err)
		view.ErrorMessage = "Internal error"
		s.render(w, "main", view)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.invokeTimeout)
	defer cancel()

	env := composer.InvokeModel(ctx, api.ModelRequest{
		Prompt:      view.Prompt,
		Model:       view.Model,
		Temperature: temperature,
		WebSearch:   view.WebSearch,
	})

	if env.Failed() {
		view.ErrorMessage = env.Error
		s.render(w, "main", view)
		return
	}

	view.HasResponse = true
	view.ExtractedText = extract.OutputText(env.Data)
	view.RawJSON = prettyJSON(env.Data)
	s.render(w, "main", view)
}

// idleView builds the prompt page in its default state.
func (s *Server) idleView(email string) mainView {
	return mainView{
		CSS:         s.css,
		Email:       email,
		Models:      api.Models,
		Model:       api.Models[0],
		Temperature: "1.0",
	}
}

// sessionCookies reads the token and email cookies.
func (s *Server) sessionCookies(r *http.Request) (token, email string) {
	if c, err := r.Cookie(s.cookieName); err == nil {
		token = c.Value
	}
	if c, err := r.Cookie(s.cookieName + "_email"); err == nil {
		email = c.Value
	}
	return token, email
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// prettyJSON indents a raw JSON body for display. Falls back to the raw
// text when the body is not valid JSON.
func prettyJSON(data json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

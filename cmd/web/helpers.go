package main

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/aivisibility/internal/analysis"
	"github.com/myrjola/aivisibility/internal/contexthelpers"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/queries"
	"github.com/myrjola/aivisibility/internal/wizard"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri), slog.Any("formdata", r.PostForm))
	http.Error(w, http.StatusText(status), status)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound)
}

// redirectHome finishes a form post by showing the current step.
func (app *application) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// wizardError answers a wizard operation that could not be applied. Posts from a page that no longer
// matches the session's step are sent back to the current step.
func (app *application) wizardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, wizard.ErrWrongStep), errors.Is(err, wizard.ErrNoQueries), errors.Is(err, queries.ErrFrozen):
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "stale wizard request", errors.SlogError(err))
		app.redirectHome(w, r)
	case errors.Is(err, queries.ErrIndexOutOfRange), errors.Is(err, analysis.ErrIndexOutOfRange):
		app.notFound(w, r)
	case errors.Is(err, analysis.ErrNotAnalyzed):
		app.clientError(w, r, http.StatusConflict)
	default:
		app.serverError(w, r, err)
	}
}

// pathIndex parses the {index} path value.
func pathIndex(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// session returns the wizard session attached by the wizardSession middleware.
func (app *application) session(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	sess := contexthelpers.WizardSession(r.Context())
	if sess == nil {
		app.serverError(w, r, errors.New("wizard session missing from context"))
		return nil, false
	}
	return sess, true
}

// parseForm parses the posted form and answers 400 Bad Request when it is malformed.
func (app *application) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return false
	}
	return true
}

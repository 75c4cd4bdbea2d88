package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/wizard"
)

// home renders the step the visitor is on.
func (app *application) home(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	app.renderStep(w, r, http.StatusOK, sess.Step())
}

func (app *application) renderStep(w http.ResponseWriter, r *http.Request, status int, step wizard.Step) {
	base := app.newBaseTemplateData(r, step)
	switch s := step.(type) {
	case wizard.InputStep:
		app.render(w, r, status, "input", inputTemplateData{
			BaseTemplateData: base,
			Brand:            s.Brand,
			Error:            s.Error,
		})
	case wizard.QueryConfirmationStep:
		app.render(w, r, status, "queries", newQueriesTemplateData(base, s))
	case wizard.ResultsStep:
		app.render(w, r, status, "results", resultsTemplateData{
			BaseTemplateData: base,
			Results:          newResultsView(s),
		})
	default:
		app.serverError(w, r, errors.New("unknown wizard step", slog.String("step", wizard.StepName(step))))
	}
}

// report shows a stored report. A report that cannot be loaded leaves the visitor on the input step with
// an explanation.
func (app *application) report(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		app.redirectHome(w, r)
		return
	}
	if err := app.flow.LoadReport(r.Context(), sess, id); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.renderStep(w, r, http.StatusOK, sess.Step())
}

// reset abandons the visitor's progress and starts over from the input step.
func (app *application) reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	app.flow.Reset(sess)
	app.redirectHome(w, r)
}

func (app *application) submitBrand(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok || !app.parseForm(w, r) {
		return
	}
	brand := models.BrandInput{
		Name:     r.PostForm.Get("name"),
		Domain:   r.PostForm.Get("domain"),
		Keywords: r.PostForm.Get("keywords"),
	}
	if err := app.flow.SubmitBrand(r.Context(), sess, brand); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

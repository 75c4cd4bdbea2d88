package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/aivisibility/internal/analysis"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/wizard"
)

// resultsStep returns the session's results step. Visitors who are elsewhere in the wizard are sent to
// their current step, htmx requests through a client side redirect.
func (app *application) resultsStep(w http.ResponseWriter, r *http.Request) (wizard.ResultsStep, bool) {
	sess, ok := app.session(w, r)
	if !ok {
		return wizard.ResultsStep{}, false
	}
	step, ok := sess.Step().(wizard.ResultsStep)
	if !ok {
		app.redirectToStep(w, r)
		return wizard.ResultsStep{}, false
	}
	return step, true
}

func (app *application) redirectToStep(w http.ResponseWriter, r *http.Request) {
	h := app.htmx.NewHandler(w, r)
	if h.IsHxRequest() {
		h.Redirect("/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	app.redirectHome(w, r)
}

// renderItem answers htmx with the row of index and everybody else with the whole page.
func (app *application) renderItem(w http.ResponseWriter, r *http.Request, step wizard.ResultsStep, index int) {
	if !app.htmx.NewHandler(w, r).IsHxRequest() {
		app.redirectHome(w, r)
		return
	}
	app.renderItemUpdate(w, r, step, index)
}

// renderItemUpdate renders the row of index together with the metrics it may have changed.
func (app *application) renderItemUpdate(w http.ResponseWriter, r *http.Request, step wizard.ResultsStep, index int) {
	entry, err := step.Run.Entry(index)
	if err != nil {
		app.wizardError(w, r, err)
		return
	}
	metrics := newMetricsView(step.Run)
	metrics.OOB = true
	app.renderPartial(w, r, http.StatusOK, "item-update", itemUpdateView{
		Item:    newItemView(entry, step.Brand.Domain, step.Run.IsSettled()),
		Metrics: metrics,
	})
}

// retryWait bounds how long a retry waits for its answer so that the row still renders before the
// request times out.
func (app *application) retryWait() time.Duration {
	return max(app.requestTimeout-2*timeoutMargin, timeoutMargin)
}

func (app *application) resultItem(w http.ResponseWriter, r *http.Request) {
	step, ok := app.resultsStep(w, r)
	if !ok {
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		app.notFound(w, r)
		return
	}
	app.renderItemUpdate(w, r, step, index)
}

func (app *application) resultMetrics(w http.ResponseWriter, r *http.Request) {
	step, ok := app.resultsStep(w, r)
	if !ok {
		return
	}
	app.renderPartial(w, r, http.StatusOK, "metrics", newMetricsView(step.Run))
}

func (app *application) retryItem(w http.ResponseWriter, r *http.Request) {
	step, ok := app.resultsStep(w, r)
	if !ok {
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		app.notFound(w, r)
		return
	}
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	dispatched, err := app.flow.Retry(r.Context(), sess, index)
	if err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "retry requested",
		slog.Int("index", index), slog.Bool("dispatched", dispatched))

	// A row still loading after the wait polls for its answer.
	ctx, cancel := context.WithTimeout(r.Context(), app.retryWait())
	defer cancel()
	if err = step.Run.Await(ctx, index); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "retry still in flight",
			slog.Int("index", index), errors.SlogError(err))
	}
	app.renderItem(w, r, step, index)
}

func (app *application) generateRecommendations(w http.ResponseWriter, r *http.Request) {
	step, ok := app.resultsStep(w, r)
	if !ok {
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		app.notFound(w, r)
		return
	}
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	if _, err := app.flow.GenerateRecommendations(r.Context(), sess, index); err != nil {
		if errors.Is(err, analysis.ErrIndexOutOfRange) || errors.Is(err, analysis.ErrNotAnalyzed) ||
			errors.Is(err, wizard.ErrWrongStep) {
			app.wizardError(w, r, err)
			return
		}
		// The row stays as it was and offers generating again.
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "failed to generate recommendations",
			slog.Int("index", index), errors.SlogError(err))
	}
	app.renderItem(w, r, step, index)
}

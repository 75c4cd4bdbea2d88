package main

import (
	"io/fs"
	"net/http"

	"github.com/justinas/alice"
	"github.com/myrjola/aivisibility/ui"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		// The directory is embedded at compile time.
		panic(err)
	}
	mux.Handle("GET /static/", cacheHeaders(http.StripPrefix("/static", http.FileServer(http.FS(static)))))

	timeout := func(h http.Handler) http.Handler {
		return timeoutHandler(h, app.requestTimeout)
	}
	dynamic := alice.New(timeout, app.sessionManager.LoadAndSave, app.noSurf, commonContext, app.wizardSession)
	// Live result streams run for as long as the analysis does so they skip the timeout and only read the
	// cookie session.
	stream := alice.New(app.serverSentEventMiddleware, app.noSurf, commonContext, app.existingWizardSession)

	mux.Handle("GET /{$}", dynamic.ThenFunc(app.home))
	mux.Handle("GET /ai-visibility/report", dynamic.ThenFunc(app.report))
	mux.Handle("POST /reset", dynamic.ThenFunc(app.reset))

	mux.Handle("POST /brand", dynamic.ThenFunc(app.submitBrand))

	mux.Handle("POST /queries", dynamic.ThenFunc(app.addQuery))
	mux.Handle("POST /queries/{index}/edit", dynamic.ThenFunc(app.editQuery))
	mux.Handle("POST /queries/{index}/remove", dynamic.ThenFunc(app.removeQuery))

	mux.Handle("POST /verification/open", dynamic.ThenFunc(app.openVerification))
	mux.Handle("POST /verification/close", dynamic.ThenFunc(app.closeVerification))
	mux.Handle("POST /verification/code", dynamic.ThenFunc(app.sendCode))
	mux.Handle("POST /verification/email", dynamic.ThenFunc(app.changeEmail))
	mux.Handle("POST /verification/confirm", dynamic.ThenFunc(app.confirmCode))

	mux.Handle("GET /results/items/{index}", dynamic.ThenFunc(app.resultItem))
	mux.Handle("POST /results/items/{index}/retry", dynamic.ThenFunc(app.retryItem))
	mux.Handle("POST /results/items/{index}/recommendations", dynamic.ThenFunc(app.generateRecommendations))
	mux.Handle("GET /results/metrics", dynamic.ThenFunc(app.resultMetrics))
	mux.Handle("GET /results/events", stream.ThenFunc(app.resultEvents))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	mux.Handle("/", http.HandlerFunc(app.notFound))

	return app.recoverPanic(app.logRequest(app.secureHeaders(mux)))
}

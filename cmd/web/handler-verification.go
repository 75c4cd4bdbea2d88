package main

import (
	"net/http"
)

// The verification gate keeps its state, including inline errors, in the wizard session. Every handler
// applies one change and sends the visitor back to the query confirmation page that shows the gate.

func (app *application) openVerification(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	if err := app.flow.OpenVerification(sess); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

func (app *application) closeVerification(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	if err := app.flow.CloseVerification(sess); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

func (app *application) sendCode(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok || !app.parseForm(w, r) {
		return
	}
	if err := app.flow.SendCode(r.Context(), sess, r.PostForm.Get("email")); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

func (app *application) changeEmail(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	if err := app.flow.ChangeEmail(sess); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

func (app *application) confirmCode(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok || !app.parseForm(w, r) {
		return
	}
	if err := app.flow.Confirm(r.Context(), sess, r.PostForm.Get("code")); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

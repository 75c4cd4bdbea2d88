package main

import (
	"net/http"
)

func (app *application) addQuery(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok || !app.parseForm(w, r) {
		return
	}
	if _, err := app.flow.AddQuery(sess, r.PostForm.Get("query")); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

func (app *application) editQuery(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok || !app.parseForm(w, r) {
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		app.notFound(w, r)
		return
	}
	if err := app.flow.EditQuery(sess, index, r.PostForm.Get("query")); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

func (app *application) removeQuery(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.session(w, r)
	if !ok {
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		app.notFound(w, r)
		return
	}
	if err := app.flow.RemoveQuery(sess, index); err != nil {
		app.wizardError(w, r, err)
		return
	}
	app.redirectHome(w, r)
}

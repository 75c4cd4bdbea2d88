package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"

	"github.com/myrjola/aivisibility/internal/contexthelpers"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/ui"
)

// partialsTemplate names the template set holding only the fragments that are rendered on their own.
const partialsTemplate = "partials"

func templateFuncs() template.FuncMap {
	// nonce and csrf depend on the request and are replaced in templateFor.
	return template.FuncMap{
		"nonce": func() template.HTMLAttr {
			panic("not implemented")
		},
		"csrf": func() template.HTML {
			panic("not implemented")
		},
		"yesNo": func(b bool) string {
			if b {
				return "Yes"
			}
			return "No"
		},
	}
}

// parseTemplates parses one template set per directory in ui/templates/pages plus the partials set.
//
// Every page directory has to include templates named "title" and "page".
func parseTemplates() (map[string]*template.Template, error) {
	pageDirs, err := fs.Glob(ui.Files, "templates/pages/*")
	if err != nil {
		return nil, errors.Wrap(err, "glob page directories")
	}
	templates := make(map[string]*template.Template, len(pageDirs)+1)
	for _, dir := range pageDirs {
		name := path.Base(dir)
		var t *template.Template
		if t, err = template.New(name).Funcs(templateFuncs()).ParseFS(ui.Files,
			"templates/base.gohtml",
			"templates/partials/*.gohtml",
			dir+"/*.gohtml",
		); err != nil {
			return nil, errors.Wrap(err, "parse page template", slog.String("page", name))
		}
		templates[name] = t
	}

	var t *template.Template
	if t, err = template.New(partialsTemplate).Funcs(templateFuncs()).
		ParseFS(ui.Files, "templates/partials/*.gohtml"); err != nil {
		return nil, errors.Wrap(err, "parse partial templates")
	}
	templates[partialsTemplate] = t
	return templates, nil
}

// templateFor returns a copy of the named template set bound to the nonce and CSRF token of ctx.
func (app *application) templateFor(ctx context.Context, set string) (*template.Template, error) {
	parsed, ok := app.templates[set]
	if !ok {
		return nil, errors.New("template set not found", slog.String("template", set))
	}
	t, err := parsed.Clone()
	if err != nil {
		return nil, errors.Wrap(err, "clone template", slog.String("template", set))
	}

	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>",
		template.HTMLEscapeString(contexthelpers.CSRFToken(ctx)))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec, we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec, we trust the csrf since it's not provided by user.
		},
	})
	return t, nil
}

// execute renders template name of set into a buffer so that failures can still become a 500 response.
func (app *application) execute(ctx context.Context, set, name string, data any) (*bytes.Buffer, error) {
	t, err := app.templateFor(ctx, set)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, name, data); err != nil {
		return nil, errors.Wrap(err, "execute template", slog.String("template", set), slog.String("name", name))
	}
	return buf, nil
}

// render writes the full page of the given page template set.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	buf, err := app.execute(r.Context(), page, "base", data)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}

// renderPartial writes a single fragment for htmx to swap in.
func (app *application) renderPartial(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	buf, err := app.execute(r.Context(), partialsTemplate, name, data)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}

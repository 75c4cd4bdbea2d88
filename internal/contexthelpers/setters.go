package contexthelpers

import (
	"context"
	"net/http"

	"github.com/myrjola/aivisibility/internal/wizard"
)

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, currentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetCSRFToken(r *http.Request, csrfToken string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, csrfTokenContextKey, csrfToken)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, nonce string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, cspNonceContextKey, nonce)
	return r.WithContext(ctx)
}

func SetWizardSession(r *http.Request, sess *wizard.Session) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, wizardSessionContextKey, sess)
	return r.WithContext(ctx)
}

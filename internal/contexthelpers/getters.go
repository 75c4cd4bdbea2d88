package contexthelpers

import (
	"context"

	"github.com/myrjola/aivisibility/internal/wizard"
)

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(currentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}

func CSPNonce(ctx context.Context) string {
	nonce, ok := ctx.Value(cspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return nonce
}

// WizardSession returns the visitor's wizard session or nil when the request has none.
func WizardSession(ctx context.Context) *wizard.Session {
	sess, ok := ctx.Value(wizardSessionContextKey).(*wizard.Session)
	if !ok {
		return nil
	}

	return sess
}

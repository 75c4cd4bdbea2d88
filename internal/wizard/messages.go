package wizard

import (
	"github.com/myrjola/aivisibility/internal/backend"
	"github.com/myrjola/aivisibility/internal/errors"
)

const (
	msgGenerationFailed  = "Failed to generate queries. Please try again."
	msgBackendOffline    = "Connection failed. Backend might be offline."
	msgReportNotFound    = "Could not find the requested report."
	msgReportUnreachable = "Failed to fetch the report. It may have been moved or deleted."
	msgSendCodeFailed    = "Failed to send verification code."
	msgSendCodeNetwork   = "Network error. Verification service unavailable."
	msgInvalidCode       = "Invalid verification code."
	msgVerifyNetwork     = "Verification failed. Please retry."
	msgIncompleteBrand   = "Please fill in the brand name, domain and keywords."
	msgInvalidEmail      = "Please enter a valid email address."
	msgCodeLength        = "Please enter the 6-digit code from your email."
	msgNoQueries         = "Add at least one query before starting the analysis."
)

func rejection(err error) (*backend.ApplicationError, bool) {
	var appErr *backend.ApplicationError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GenerationMessage is shown when generating queries fails.
func GenerationMessage(err error) string {
	if appErr, ok := rejection(err); ok {
		return firstNonEmpty(appErr.Message, msgGenerationFailed)
	}
	return msgBackendOffline
}

// ReportMessage is shown when a stored report cannot be loaded.
func ReportMessage(err error) string {
	if _, ok := rejection(err); ok {
		return msgReportNotFound
	}
	return msgReportUnreachable
}

// SendCodeMessage is shown in the verification gate when sending the code fails.
func SendCodeMessage(err error) string {
	if appErr, ok := rejection(err); ok {
		return firstNonEmpty(appErr.Detail, appErr.Message, msgSendCodeFailed)
	}
	return msgSendCodeNetwork
}

// VerifyMessage is shown in the verification gate when the code is not accepted.
func VerifyMessage(err error) string {
	if appErr, ok := rejection(err); ok {
		return firstNonEmpty(appErr.Detail, msgInvalidCode)
	}
	return msgVerifyNetwork
}

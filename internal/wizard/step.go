// Package wizard models the three-step lead generation flow: brand input, query confirmation behind an
// email verification gate and the analysis results.
//
// Step transitions are a pure function of the current step and an event, see [Reduce]. Side effects such
// as backend calls live in [Flow] which feeds their outcome back into Reduce.
package wizard

import (
	"github.com/myrjola/aivisibility/internal/analysis"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/queries"
)

// Step is one of [InputStep], [QueryConfirmationStep] or [ResultsStep].
type Step interface {
	isStep()
}

// InputStep collects the brand details.
type InputStep struct {
	// Brand is pre-filled after a failed attempt.
	Brand models.BrandInput
	Error string
}

// QueryConfirmationStep lets the visitor edit the generated queries and verify their email.
type QueryConfirmationStep struct {
	Brand        models.BrandInput
	DocID        string
	Editor       *queries.Editor
	Verification Verification
}

// ResultsStep shows the analysis of the confirmed queries, live or from a stored report.
type ResultsStep struct {
	Brand      models.BrandInput
	DocID      string
	Run        *analysis.Run
	FromReport bool
}

func (InputStep) isStep()             {}
func (QueryConfirmationStep) isStep() {}
func (ResultsStep) isStep()           {}

// Event is something that happened to a wizard session.
type Event interface {
	isEvent()
}

type QueriesGenerated struct {
	Brand   models.BrandInput
	DocID   string
	Queries []string
}

type GenerationFailed struct {
	Brand   models.BrandInput
	Message string
}

// VerificationChanged replaces the state of the verification gate.
type VerificationChanged struct {
	Verification Verification
}

// AnalysisStarted carries the run created from the frozen query list.
type AnalysisStarted struct {
	Run *analysis.Run
}

// ReportLoaded carries a run rehydrated from a stored report.
type ReportLoaded struct {
	Run *analysis.Run
}

type ReportFailed struct {
	Message string
}

type Reset struct{}

func (QueriesGenerated) isEvent()    {}
func (GenerationFailed) isEvent()    {}
func (VerificationChanged) isEvent() {}
func (AnalysisStarted) isEvent()     {}
func (ReportLoaded) isEvent()        {}
func (ReportFailed) isEvent()        {}
func (Reset) isEvent()               {}

// Reduce returns the step following current after event. Events that make no sense in the current step
// leave it unchanged.
func Reduce(current Step, event Event) Step {
	switch e := event.(type) {
	case Reset:
		return InputStep{}
	case ReportLoaded:
		return ResultsStep{Brand: e.Run.Brand(), DocID: e.Run.DocID(), Run: e.Run, FromReport: true}
	case ReportFailed:
		return InputStep{Error: e.Message}
	}

	switch s := current.(type) {
	case InputStep:
		switch e := event.(type) {
		case QueriesGenerated:
			return QueryConfirmationStep{
				Brand:  e.Brand,
				DocID:  e.DocID,
				Editor: queries.NewEditor(e.Queries),
			}
		case GenerationFailed:
			return InputStep{Brand: e.Brand, Error: e.Message}
		}
	case QueryConfirmationStep:
		switch e := event.(type) {
		case VerificationChanged:
			s.Verification = e.Verification
			return s
		case AnalysisStarted:
			return ResultsStep{Brand: s.Brand, DocID: s.DocID, Run: e.Run}
		}
	}
	return current
}

// StepName is a stable identifier of the step kind for logs and templates.
func StepName(s Step) string {
	switch s.(type) {
	case InputStep:
		return "input"
	case QueryConfirmationStep:
		return "queries"
	case ResultsStep:
		return "results"
	default:
		return "unknown"
	}
}

package wizard

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/aivisibility/internal/analysis"
	"github.com/myrjola/aivisibility/internal/backend"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
)

var (
	// ErrWrongStep is returned when an operation does not apply to the session's current step.
	ErrWrongStep = errors.NewSentinel("operation not available in current step")
	ErrNoQueries = errors.NewSentinel("no queries to analyse")
)

// Backend is the part of the remote service the wizard drives.
type Backend interface {
	analysis.Backend
	GenerateQueries(ctx context.Context, brand models.BrandInput) (backend.GeneratedQueries, error)
	GetReport(ctx context.Context, id string) (models.Report, error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, params backend.VerifyOTPParams) error
}

// LeadCapturer records verified visitors without blocking them.
type LeadCapturer interface {
	Capture(ctx context.Context, contact models.Contact)
}

// NotificationKind tells live result listeners what changed.
type NotificationKind string

const (
	EntryChanged NotificationKind = "entry"
	RunSettled   NotificationKind = "settled"
)

// Notification is published for every change of a session's run.
type Notification struct {
	Kind  NotificationKind
	Index int
}

// Notifier delivers notifications to whoever watches a session.
type Notifier interface {
	Publish(sessionID string, n Notification)
}

// Flow performs the side effects of the wizard and feeds their outcome through [Reduce].
type Flow struct {
	backend  Backend
	leads    LeadCapturer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewFlow creates a flow. leads and notifier may be nil.
func NewFlow(b Backend, leads LeadCapturer, notifier Notifier, logger *slog.Logger) *Flow {
	return &Flow{
		backend:  b,
		leads:    leads,
		notifier: notifier,
		logger:   logger.With(slog.String("source", "wizard")),
		now:      time.Now,
	}
}

func (f *Flow) apply(sess *Session, event Event) Step {
	sess.step = Reduce(sess.step, event)
	return sess.step
}

// SubmitBrand generates queries for brand and advances to query confirmation. Backend failures keep the
// session on the input step with a message.
func (f *Flow) SubmitBrand(ctx context.Context, sess *Session, brand models.BrandInput) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if _, ok := sess.step.(InputStep); !ok {
		return errors.Wrap(ErrWrongStep, "submit brand", slog.String("step", StepName(sess.step)))
	}

	brand = models.BrandInput{
		Name:     strings.TrimSpace(brand.Name),
		Domain:   strings.TrimSpace(brand.Domain),
		Keywords: strings.TrimSpace(brand.Keywords),
	}
	if !brand.Complete() {
		f.apply(sess, GenerationFailed{Brand: brand, Message: msgIncompleteBrand})
		return nil
	}

	generated, err := f.backend.GenerateQueries(ctx, brand)
	if err != nil {
		f.logger.LogAttrs(ctx, slog.LevelWarn, "generate queries failed", errors.SlogError(err))
		f.apply(sess, GenerationFailed{Brand: brand, Message: GenerationMessage(err)})
		return nil
	}
	f.apply(sess, QueriesGenerated{Brand: brand, DocID: generated.DocID, Queries: generated.Queries})
	f.logger.LogAttrs(ctx, slog.LevelInfo, "queries generated",
		slog.String("doc_id", generated.DocID), slog.Int("count", len(generated.Queries)))
	return nil
}

// LoadReport replaces the session with the stored report id. Nothing is sent to the analysis endpoint.
func (f *Flow) LoadReport(ctx context.Context, sess *Session, id string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	id = strings.TrimSpace(id)
	report, err := f.backend.GetReport(ctx, id)
	if err != nil {
		f.logger.LogAttrs(ctx, slog.LevelWarn, "load report failed", slog.String("doc_id", id), errors.SlogError(err))
		f.apply(sess, ReportFailed{Message: ReportMessage(err)})
		return nil
	}
	run := analysis.Rehydrate(id, report, f.backend, f.logger)
	f.watch(sess.ID, run)
	f.apply(sess, ReportLoaded{Run: run})
	return nil
}

func (f *Flow) confirmationStep(sess *Session, op string) (QueryConfirmationStep, error) {
	step, ok := sess.step.(QueryConfirmationStep)
	if !ok {
		return QueryConfirmationStep{}, errors.Wrap(ErrWrongStep, op, slog.String("step", StepName(sess.step)))
	}
	return step, nil
}

// AddQuery appends a query. It reports false when text was blank or the list is full.
func (f *Flow) AddQuery(sess *Session, text string) (bool, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "add query")
	if err != nil {
		return false, err
	}
	return step.Editor.Add(text)
}

func (f *Flow) EditQuery(sess *Session, index int, text string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "edit query")
	if err != nil {
		return err
	}
	return step.Editor.Edit(index, text)
}

func (f *Flow) RemoveQuery(sess *Session, index int) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "remove query")
	if err != nil {
		return err
	}
	return step.Editor.Remove(index)
}

// OpenVerification shows the verification gate. There has to be at least one query to analyse.
func (f *Flow) OpenVerification(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "open verification")
	if err != nil {
		return err
	}
	if step.Editor.Len() == 0 {
		return ErrNoQueries
	}
	v := step.Verification
	v.Open = true
	f.apply(sess, VerificationChanged{Verification: v})
	return nil
}

// CloseVerification hides the gate and forgets its error.
func (f *Flow) CloseVerification(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "close verification")
	if err != nil {
		return err
	}
	v := step.Verification
	v.Open = false
	v.Error = ""
	f.apply(sess, VerificationChanged{Verification: v})
	return nil
}

// SendCode asks the backend to email a code to email and moves the gate to the code stage.
func (f *Flow) SendCode(ctx context.Context, sess *Session, email string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "send code")
	if err != nil {
		return err
	}

	v := step.Verification
	v.Open = true
	normalized, ok := NormalizeEmail(email)
	v.Email = normalized
	if !ok {
		v.Error = msgInvalidEmail
		f.apply(sess, VerificationChanged{Verification: v})
		return nil
	}

	if err = f.backend.SendOTP(ctx, normalized); err != nil {
		f.logger.LogAttrs(ctx, slog.LevelWarn, "send code failed", errors.SlogError(err))
		v.Error = SendCodeMessage(err)
	} else {
		v.Stage = StageCodeSent
		v.Error = ""
	}
	f.apply(sess, VerificationChanged{Verification: v})
	return nil
}

// ChangeEmail returns the gate to the email stage.
func (f *Flow) ChangeEmail(sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "change email")
	if err != nil {
		return err
	}
	v := step.Verification
	v.Stage = StageDetails
	v.Error = ""
	f.apply(sess, VerificationChanged{Verification: v})
	return nil
}

// Confirm verifies code. When the backend accepts it, the contact is captured, the query list is frozen
// and the analysis starts.
func (f *Flow) Confirm(ctx context.Context, sess *Session, code string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, err := f.confirmationStep(sess, "confirm code")
	if err != nil {
		return err
	}

	v := step.Verification
	if v.Stage != StageCodeSent {
		return errors.Wrap(ErrWrongStep, "confirm code before sending it")
	}
	code = NormalizeCode(code)
	if !ValidCode(code) {
		v.Error = msgCodeLength
		f.apply(sess, VerificationChanged{Verification: v})
		return nil
	}
	if step.Editor.Len() == 0 {
		v.Error = msgNoQueries
		f.apply(sess, VerificationChanged{Verification: v})
		return nil
	}

	otp, err := strconv.Atoi(code)
	if err != nil {
		return errors.Wrap(err, "parse code")
	}
	params := backend.VerifyOTPParams{
		Email:    v.Email,
		OTP:      otp,
		Brand:    step.Brand.Name,
		Domain:   step.Brand.Domain,
		Keywords: step.Brand.KeywordList(),
		Queries:  step.Editor.Queries(),
		DocID:    step.DocID,
	}
	if err = f.backend.VerifyOTP(ctx, params); err != nil {
		f.logger.LogAttrs(ctx, slog.LevelWarn, "verify code failed", errors.SlogError(err))
		v.Error = VerifyMessage(err)
		f.apply(sess, VerificationChanged{Verification: v})
		return nil
	}

	if f.leads != nil {
		f.leads.Capture(ctx, models.Contact{
			Email:     v.Email,
			Brand:     step.Brand.Name,
			Domain:    step.Brand.Domain,
			DocID:     step.DocID,
			CreatedAt: f.now(),
		})
	}

	run := analysis.NewRun(step.Brand, step.DocID, step.Editor.Freeze(), f.backend, f.logger)
	f.watch(sess.ID, run)
	f.apply(sess, AnalysisStarted{Run: run})
	run.Start(ctx)
	f.logger.LogAttrs(ctx, slog.LevelInfo, "analysis started",
		slog.String("doc_id", step.DocID), slog.Int("total_queries", run.Len()))
	return nil
}

func (f *Flow) resultsStep(sess *Session, op string) (ResultsStep, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	step, ok := sess.step.(ResultsStep)
	if !ok {
		return ResultsStep{}, errors.Wrap(ErrWrongStep, op, slog.String("step", StepName(sess.step)))
	}
	return step, nil
}

// Retry re-runs the analysis of one query of the session's run.
func (f *Flow) Retry(ctx context.Context, sess *Session, index int) (bool, error) {
	step, err := f.resultsStep(sess, "retry")
	if err != nil {
		return false, err
	}
	return step.Run.Retry(ctx, index)
}

// GenerateRecommendations fetches recommendations for one analysed query of the session's run.
func (f *Flow) GenerateRecommendations(ctx context.Context, sess *Session, index int) ([]string, error) {
	step, err := f.resultsStep(sess, "generate recommendations")
	if err != nil {
		return nil, err
	}
	return step.Run.GenerateRecommendations(ctx, index)
}

// Reset discards everything and returns to the input step.
func (f *Flow) Reset(sess *Session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	f.apply(sess, Reset{})
}

// watch forwards run changes to the session's listeners.
func (f *Flow) watch(sessionID string, run *analysis.Run) {
	if f.notifier == nil {
		return
	}
	run.Observe(func(index int) {
		f.notifier.Publish(sessionID, Notification{Kind: EntryChanged, Index: index})
	})
	go func() {
		<-run.Settled()
		f.notifier.Publish(sessionID, Notification{Kind: RunSettled, Index: -1})
	}()
}

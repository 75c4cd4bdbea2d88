// Package leads captures verified visitors as sales contacts.
//
// Capturing is best effort. A lost contact never affects the visitor so failures are logged and dropped.
package leads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
)

const defaultTimeout = 10 * time.Second

// Saver persists a contact.
type Saver interface {
	Save(ctx context.Context, contact models.Contact) (models.Contact, error)
}

// Recorder writes contacts in the background.
type Recorder struct {
	saver   Saver
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecorder(saver Saver, logger *slog.Logger) *Recorder {
	return &Recorder{
		saver:   saver,
		logger:  logger.With(slog.String("source", "leads")),
		timeout: defaultTimeout,
	}
}

// Capture saves contact without waiting for the result. The write gets its own deadline detached from ctx
// so that it survives the request that triggered it.
func (r *Recorder) Capture(ctx context.Context, contact models.Contact) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.LogAttrs(ctx, slog.LevelError, "panic while capturing contact", slog.Any("panic", rec))
			}
		}()

		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		saved, err := r.saver.Save(saveCtx, contact)
		if err != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to capture contact",
				slog.String("doc_id", contact.DocID), errors.SlogError(err))
			return
		}
		r.logger.LogAttrs(ctx, slog.LevelInfo, "captured contact",
			slog.String("contact_id", saved.ID), slog.String("doc_id", saved.DocID))
	}()
}

// Wait blocks until pending captures finish. Used on shutdown and in tests.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

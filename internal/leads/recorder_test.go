package leads_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/leads"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type stubSaver struct {
	mu       sync.Mutex
	saved    []models.Contact
	err      error
	deadline bool
}

func (s *stubSaver) Save(ctx context.Context, contact models.Contact) (models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.deadline = ctx.Deadline()
	if s.err != nil {
		return models.Contact{}, s.err
	}
	contact.ID = "contact-1"
	s.saved = append(s.saved, contact)
	return contact, nil
}

func TestRecorder_Capture(t *testing.T) {
	sink := &testhelpers.LogSink{}
	saver := &stubSaver{}
	recorder := leads.NewRecorder(saver, testhelpers.NewLogger(sink))

	ctx, cancel := context.WithCancel(context.Background())
	recorder.Capture(ctx, models.Contact{Email: "a@b.c", DocID: "abc123", CreatedAt: time.Now()})
	// The originating request finishing must not abort the write.
	cancel()
	recorder.Wait()

	require.Len(t, saver.saved, 1)
	require.True(t, saver.deadline)
	require.Contains(t, sink.String(), "captured contact")
}

func TestRecorder_CaptureFailureIsLogged(t *testing.T) {
	sink := &testhelpers.LogSink{}
	saver := &stubSaver{err: errors.New("disk full")}
	recorder := leads.NewRecorder(saver, testhelpers.NewLogger(sink))

	recorder.Capture(context.Background(), models.Contact{Email: "a@b.c", DocID: "abc123"})
	recorder.Wait()

	require.Empty(t, saver.saved)
	require.Contains(t, sink.String(), `level=ERROR msg="failed to capture contact"`)
	require.Contains(t, sink.String(), "disk full")
}

package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/aivisibility/internal/contexthelpers"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/wizard"
)

// Server-Sent Event names understood by the results page.
const (
	eventMetrics = "metrics"
	eventSettled = "settled"
)

func entryEvent(index int) string {
	return "entry-" + strconv.Itoa(index)
}

// eventStream writes Server-Sent Events with HTML fragments as their data.
type eventStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s eventStream) send(event string, data *bytes.Buffer) error {
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteByte('\n')
	for _, line := range bytes.Split(bytes.TrimRight(data.Bytes(), "\n"), []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	if _, err := buf.WriteTo(s.w); err != nil {
		return errors.Wrap(err, "write event", slog.String("event", event))
	}
	if err := s.rc.Flush(); err != nil {
		return errors.Wrap(err, "flush event", slog.String("event", event))
	}
	return nil
}

// resultEvents streams re-rendered result rows and metrics while the session's analysis runs. Once the
// run settles the whole live results section is sent one last time without the stream attached, which
// makes the browser close it.
//
// Visitors without a running analysis get 204 No Content, telling the browser not to reconnect.
func (app *application) resultEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := contexthelpers.WizardSession(ctx)
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	step, ok := sess.Step().(wizard.ResultsStep)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Subscribe before the first snapshot so that no change falls in between.
	sub := app.hub.Subscribe(sess.ID)
	defer app.hub.Unsubscribe(sub)

	rc := http.NewResponseController(w)
	// The stream lives as long as the analysis, past the server's read and write timeouts.
	if err := rc.SetReadDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear read deadline"))
		return
	}
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear write deadline"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	stream := eventStream{w: w, rc: rc}

	if err := app.streamResults(ctx, stream, sess, step, sub.C); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "result stream ended", errors.SlogError(err))
	}
}

func (app *application) streamResults(
	ctx context.Context,
	stream eventStream,
	sess *wizard.Session,
	step wizard.ResultsStep,
	notifications <-chan wizard.Notification,
) error {
	if step.Run.IsSettled() {
		return app.sendSettled(ctx, stream, step)
	}
	for i := range step.Run.Len() {
		if err := app.sendEntry(ctx, stream, step, i); err != nil {
			return err
		}
	}
	if err := app.sendMetrics(ctx, stream, step); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "client gone")
		case <-app.streamsDone:
			return errors.New("server shutting down")
		case n, open := <-notifications:
			if !open {
				return errors.New("notifications closed")
			}
			current, ok := sess.Step().(wizard.ResultsStep)
			if !ok || current.Run != step.Run {
				return errors.New("analysis replaced")
			}
			switch n.Kind {
			case wizard.EntryChanged:
				if err := app.sendEntry(ctx, stream, step, n.Index); err != nil {
					return err
				}
				if err := app.sendMetrics(ctx, stream, step); err != nil {
					return err
				}
			case wizard.RunSettled:
				// A settled notice may belong to an analysis the visitor already replaced.
				if step.Run.IsSettled() {
					return app.sendSettled(ctx, stream, step)
				}
			}
		}
	}
}

func (app *application) sendEntry(ctx context.Context, stream eventStream, step wizard.ResultsStep, index int) error {
	entry, err := step.Run.Entry(index)
	if err != nil {
		return err
	}
	buf, err := app.execute(ctx, partialsTemplate, "result-item", newItemView(entry, step.Brand.Domain, false))
	if err != nil {
		return err
	}
	return stream.send(entryEvent(index), buf)
}

func (app *application) sendMetrics(ctx context.Context, stream eventStream, step wizard.ResultsStep) error {
	buf, err := app.execute(ctx, partialsTemplate, "metrics", newMetricsView(step.Run))
	if err != nil {
		return err
	}
	return stream.send(eventMetrics, buf)
}

func (app *application) sendSettled(ctx context.Context, stream eventStream, step wizard.ResultsStep) error {
	buf, err := app.execute(ctx, partialsTemplate, "results-live", newResultsView(step))
	if err != nil {
		return err
	}
	return stream.send(eventSettled, buf)
}

package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aykute/skywall/internal/atproto"
	"github.com/aykute/skywall/internal/auditlog"
)

// Blocker issues one block-creation call against the remote service.
type Blocker interface {
	CreateBlock(ctx context.Context, subject atproto.DID, createdAt time.Time) (*atproto.BlockAck, error)
}

// AuditSink receives one durable record per successful block.
type AuditSink interface {
	Append(r auditlog.Record) error
}

// DefaultBlockDelay is the fixed pause between block-creation calls. The
// sequential pace is a deliberate throughput ceiling, not a performance
// bug: the remote service expects fair-use pacing on writes.
const DefaultBlockDelay = 2 * time.Second

// Executor performs the mutation half of a run: one block at a time, paced
// by a token bucket emitting one token per delay, with each candidate's
// failure isolated from the rest of the batch.
type Executor struct {
	blocker Blocker
	sink    AuditSink
	events  Events
	limiter *rate.Limiter
	clock   func() time.Time
	log     zerolog.Logger
}

// ExecResult summarizes one execution batch.
type ExecResult struct {
	Succeeded int               `json:"succeeded"`
	Attempted int               `json:"attempted"`
	Records   []auditlog.Record `json:"records"`
	Warnings  []Warning         `json:"warnings"`
}

// NewExecutor creates an executor. A non-positive delay falls back to
// DefaultBlockDelay.
func NewExecutor(blocker Blocker, sink AuditSink, events Events, delay time.Duration, log zerolog.Logger) *Executor {
	if delay <= 0 {
		delay = DefaultBlockDelay
	}
	if events == nil {
		events = NopEvents{}
	}
	return &Executor{
		blocker: blocker,
		sink:    sink,
		events:  events,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		clock:   time.Now,
		log:     log,
	}
}

// Execute blocks every candidate in selection, in order, at most once each.
// A failed candidate is reported as a warning and skipped; the loop never
// aborts on per-item failure. Cancellation is cooperative, checked once per
// iteration before the block call, so candidates already blocked keep their
// audit records.
func (e *Executor) Execute(ctx context.Context, selection []Candidate) (*ExecResult, error) {
	result := &ExecResult{}

	for _, c := range selection {
		if err := e.limiter.Wait(ctx); err != nil {
			// Context cancelled mid-batch: stop cleanly with what we have.
			return result, err
		}
		result.Attempted++

		now := e.clock()
		if _, err := e.blocker.CreateBlock(ctx, c.DID, now); err != nil {
			w := Warning{Stage: "block", Handle: c.Handle, Err: err.Error()}
			result.Warnings = append(result.Warnings, w)
			e.events.BlockFailed(c, err)
			continue
		}

		record := auditlog.Record{
			Handle:       c.Handle,
			FollowsCount: c.FollowsCount,
			DID:          string(c.DID),
			BlockedAt:    now,
		}
		if err := e.sink.Append(record); err != nil {
			// The block happened; losing the audit row is a warning, not
			// grounds to discount the success.
			w := Warning{Stage: "audit", Handle: c.Handle, Err: err.Error()}
			result.Warnings = append(result.Warnings, w)
			e.events.Warned(w)
		}

		result.Succeeded++
		result.Records = append(result.Records, record)
		e.events.BlockSucceeded(c, result.Succeeded, len(selection))
	}

	return result, nil
}

package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Events receives progress notifications from a run. Implementations must be
// cheap: they are called inline from the single pipeline goroutine.
type Events interface {
	ScanStarted(actor string)
	FollowersFetched(count int)
	BlockSetFetched(count int)
	CandidatesFiltered(eligible, threshold int)
	BlockSucceeded(c Candidate, done, total int)
	BlockFailed(c Candidate, err error)
	Warned(w Warning)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) ScanStarted(string)                 {}
func (NopEvents) FollowersFetched(int)               {}
func (NopEvents) BlockSetFetched(int)                {}
func (NopEvents) CandidatesFiltered(int, int)        {}
func (NopEvents) BlockSucceeded(Candidate, int, int) {}
func (NopEvents) BlockFailed(Candidate, error)       {}
func (NopEvents) Warned(Warning)                     {}

// Multi fans notifications out to several sinks in order.
func Multi(sinks ...Events) Events { return multiEvents(sinks) }

type multiEvents []Events

func (m multiEvents) ScanStarted(actor string) {
	for _, e := range m {
		e.ScanStarted(actor)
	}
}

func (m multiEvents) FollowersFetched(count int) {
	for _, e := range m {
		e.FollowersFetched(count)
	}
}

func (m multiEvents) BlockSetFetched(count int) {
	for _, e := range m {
		e.BlockSetFetched(count)
	}
}

func (m multiEvents) CandidatesFiltered(eligible, threshold int) {
	for _, e := range m {
		e.CandidatesFiltered(eligible, threshold)
	}
}

func (m multiEvents) BlockSucceeded(c Candidate, done, total int) {
	for _, e := range m {
		e.BlockSucceeded(c, done, total)
	}
}

func (m multiEvents) BlockFailed(c Candidate, err error) {
	for _, e := range m {
		e.BlockFailed(c, err)
	}
}

func (m multiEvents) Warned(w Warning) {
	for _, e := range m {
		e.Warned(w)
	}
}

// LogEvents reports progress through a zerolog logger. This is the CLI's
// progress display.
type LogEvents struct {
	Log zerolog.Logger
}

func (e LogEvents) ScanStarted(actor string) {
	e.Log.Info().Str("actor", actor).Msg("fetching followers")
}

func (e LogEvents) FollowersFetched(count int) {
	e.Log.Info().Int("followers", count).Msg("followers fetched")
}

func (e LogEvents) BlockSetFetched(count int) {
	e.Log.Info().Int("blocked", count).Msg("existing blocks snapshotted")
}

func (e LogEvents) CandidatesFiltered(eligible, threshold int) {
	e.Log.Info().Int("eligible", eligible).Int("threshold", threshold).Msg("candidates filtered")
}

func (e LogEvents) BlockSucceeded(c Candidate, done, total int) {
	e.Log.Info().
		Str("handle", c.Handle).
		Int64("follows", c.FollowsCount).
		Str("progress", fmt.Sprintf("%d/%d", done, total)).
		Msg("blocked")
}

func (e LogEvents) BlockFailed(c Candidate, err error) {
	e.Log.Warn().Str("handle", c.Handle).Err(err).Msg("block failed")
}

func (e LogEvents) Warned(w Warning) {
	e.Log.Warn().Str("stage", w.Stage).Str("warning", w.Err).Msg("continuing with partial data")
}

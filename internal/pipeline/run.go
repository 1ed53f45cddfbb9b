package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aykute/skywall/internal/atproto"
	"github.com/aykute/skywall/internal/auditlog"
)

// GraphSource is the remote read surface the scan half of a run needs.
type GraphSource interface {
	ListFollowers(ctx context.Context, actor, cursor string, limit int) (*atproto.FollowerPage, error)
	ListBlocks(ctx context.Context, cursor string, limit int) (*atproto.BlockPage, error)
	GetProfile(ctx context.Context, actor string) (*atproto.ProfileView, error)
}

// RunnerConfig are the plain values a run consumes, regardless of whether
// they came from flags, a YAML file, or the web form.
type RunnerConfig struct {
	// SeedActor is the account whose followers are analyzed.
	SeedActor string
	// Threshold is the minimum follows count for a candidate to be
	// eligible. Practical range is 1000-20000.
	Threshold int64
	// MaxFollowers bounds how many followers are scanned; 0 scans all.
	MaxFollowers int
	// PageSize is the per-request pagination limit.
	PageSize int
	// HydrateCounts re-fetches each follower's full profile when the
	// listing omitted its follows count. Slower, but without it those
	// followers default to 0 and are never eligible.
	HydrateCounts bool
	// BlockDelay is the fixed pause between block calls.
	BlockDelay time.Duration
}

// ScanResult is the non-mutating half of a run: everything needed for the
// human to decide how many candidates to actually block.
type ScanResult struct {
	RunID     uuid.UUID   `json:"runId"`
	SeedActor string      `json:"seedActor"`
	Followers int         `json:"followers"`
	BlockSet  int         `json:"blockSetSize"`
	Eligible  []Candidate `json:"eligible"`
	Warnings  []Warning   `json:"warnings"`
}

// RunSummary is the final outcome surfaced to the caller.
type RunSummary struct {
	RunID     uuid.UUID `json:"runId"`
	Followers int       `json:"followers"`
	Eligible  int       `json:"eligible"`
	Selected  int       `json:"selected"`
	Succeeded int       `json:"succeeded"`
	Warnings  []Warning `json:"warnings"`
	LogPath   string    `json:"logPath"`
}

// Runner wires the pipeline stages over an authenticated graph source.
type Runner struct {
	source  GraphSource
	blocker Blocker
	sink    *auditlog.Sink
	events  Events
	cfg     RunnerConfig
	log     zerolog.Logger
}

// NewRunner builds a runner. The sink handle is run-scoped: the runner is
// its only writer for the duration of the run.
func NewRunner(source GraphSource, blocker Blocker, sink *auditlog.Sink, events Events, cfg RunnerConfig, log zerolog.Logger) *Runner {
	if events == nil {
		events = NopEvents{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Runner{
		source:  source,
		blocker: blocker,
		sink:    sink,
		events:  events,
		cfg:     cfg,
		log:     log,
	}
}

// Scan fetches followers and the block-set snapshot, then filters. It never
// mutates anything. Fetch failures degrade to partial data plus a warning;
// the scan only fails outright if the context dies.
func (r *Runner) Scan(ctx context.Context) (*ScanResult, error) {
	result := &ScanResult{
		RunID:     uuid.New(),
		SeedActor: r.cfg.SeedActor,
	}
	r.events.ScanStarted(r.cfg.SeedActor)

	followers, err := atproto.FetchAll(ctx, func(ctx context.Context, cursor string, limit int) (atproto.Page[atproto.ProfileView], error) {
		page, err := r.source.ListFollowers(ctx, r.cfg.SeedActor, cursor, limit)
		if err != nil {
			return atproto.Page[atproto.ProfileView]{}, err
		}
		return atproto.Page[atproto.ProfileView]{Items: page.Followers, Cursor: page.Cursor}, nil
	}, atproto.PageOptions{PageSize: r.cfg.PageSize, Total: r.cfg.MaxFollowers})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.warn(Warning{Stage: "followers", Err: err.Error()}, r.events)
	}
	result.Followers = len(followers)
	r.events.FollowersFetched(len(followers))

	candidates := make([]Candidate, 0, len(followers))
	for _, v := range followers {
		candidates = append(candidates, candidateFromView(v))
	}

	if r.cfg.HydrateCounts {
		r.hydrate(ctx, candidates, result)
	}

	blockSet := r.fetchBlockSet(ctx, result)
	result.BlockSet = blockSet.Len()
	r.events.BlockSetFetched(blockSet.Len())

	result.Eligible = Filter(candidates, blockSet, r.cfg.Threshold)
	r.events.CandidatesFiltered(len(result.Eligible), int(r.cfg.Threshold))

	return result, nil
}

// hydrate fills in follows counts the follower listing omitted. Per-profile
// failures leave the count at 0 and surface one warning each.
func (r *Runner) hydrate(ctx context.Context, candidates []Candidate, result *ScanResult) {
	for i := range candidates {
		if candidates[i].FollowsCount > 0 {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		view, err := r.source.GetProfile(ctx, string(candidates[i].DID))
		if err != nil {
			result.warn(Warning{Stage: "hydrate", Handle: candidates[i].Handle, Err: err.Error()}, r.events)
			continue
		}
		candidates[i].FollowsCount = view.FollowsCount
	}
}

// fetchBlockSet snapshots the account's existing blocks in full. Missing
// part of the set only degrades dedup, so an error yields the partial set
// and a warning rather than failing the run.
func (r *Runner) fetchBlockSet(ctx context.Context, result *ScanResult) BlockSet {
	views, err := atproto.FetchAll(ctx, func(ctx context.Context, cursor string, limit int) (atproto.Page[atproto.ProfileView], error) {
		page, err := r.source.ListBlocks(ctx, cursor, limit)
		if err != nil {
			return atproto.Page[atproto.ProfileView]{}, err
		}
		return atproto.Page[atproto.ProfileView]{Items: page.Blocks, Cursor: page.Cursor}, nil
	}, atproto.PageOptions{PageSize: r.cfg.PageSize})
	if err != nil {
		result.warn(Warning{Stage: "blocks", Err: err.Error()}, r.events)
	}
	return NewBlockSet(views)
}

// Execute runs the mutation batch over the confirmed prefix of the scan's
// eligible list. count has already passed the human confirmation gate; it
// is still clamped here. An empty eligible list skips execution entirely.
func (r *Runner) Execute(ctx context.Context, scan *ScanResult, count int) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     scan.RunID,
		Followers: scan.Followers,
		Eligible:  len(scan.Eligible),
		Warnings:  scan.Warnings,
		LogPath:   r.sink.Path(),
	}

	selection := Select(scan.Eligible, count)
	summary.Selected = len(selection)
	if len(selection) == 0 {
		r.log.Info().Msg("no eligible candidates, nothing to block")
		return summary, nil
	}

	if err := r.sink.Begin(); err != nil {
		return nil, err
	}
	defer r.sink.Close()

	executor := NewExecutor(r.blocker, r.sink, r.events, r.cfg.BlockDelay, r.log)
	result, err := executor.Execute(ctx, selection)
	if result != nil {
		summary.Succeeded = result.Succeeded
		summary.Warnings = append(summary.Warnings, result.Warnings...)
	}
	if err != nil {
		return summary, err
	}

	r.log.Info().
		Str("run_id", summary.RunID.String()).
		Int("succeeded", summary.Succeeded).
		Int("warnings", len(summary.Warnings)).
		Msg("run finished")
	return summary, nil
}

func (s *ScanResult) warn(w Warning, events Events) {
	s.Warnings = append(s.Warnings, w)
	events.Warned(w)
}

package registry

import (
	"context"
	"sync"

	"github.com/de-tools/autofixer/pkg/adapters"
	"github.com/de-tools/autofixer/pkg/models/api"
	"github.com/de-tools/autofixer/pkg/models/domain"
	"github.com/de-tools/autofixer/pkg/services/remote"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Registry holds the last successful diagnosis snapshot. Only Refresh writes it.
type Registry interface {
	Refresh(ctx context.Context) ([]domain.Issue, error)
	Get(issueID string) (domain.Issue, bool)
	List() []domain.Issue
	Revision() uint64
}

type snapshot struct {
	issues   []domain.Issue
	index    map[string]int
	revision uint64
}

type DefaultRegistry struct {
	caller remote.Caller
	flight singleflight.Group

	mu   sync.RWMutex
	snap snapshot
}

func NewRegistry(caller remote.Caller) *DefaultRegistry {
	return &DefaultRegistry{
		caller: caller,
		snap:   snapshot{index: map[string]int{}},
	}
}

// Refresh fetches a new diagnosis and swaps it in wholesale. Concurrent callers share one
// backend call, and each of them stops waiting when its own ctx is done. The shared call
// is detached from the cancellation of whichever caller started it and stays bounded by
// the backend timeout. On error the previous snapshot is kept.
func (r *DefaultRegistry) Refresh(ctx context.Context) ([]domain.Issue, error) {
	results := r.flight.DoChan("refresh", func() (interface{}, error) {
		return r.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		zerolog.Ctx(ctx).Warn().Err(ctx.Err()).Msg("caller left before the diagnosis refresh completed")
		return nil, &remote.Error{Kind: remote.KindUnavailable, Endpoint: remote.EndpointDiagnose, Err: ctx.Err()}
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneIssues(res.Val.([]domain.Issue)), nil
	}
}

func (r *DefaultRegistry) refresh(ctx context.Context) ([]domain.Issue, error) {
	logger := zerolog.Ctx(ctx)

	raw, err := r.caller.Call(ctx, remote.EndpointDiagnose, nil)
	if err != nil {
		logger.Error().Err(err).Msg("diagnosis refresh failed, keeping previous snapshot")
		return nil, err
	}

	var records []api.Issue
	if err := remote.Decode(remote.EndpointDiagnose, raw, &records); err != nil {
		logger.Error().Err(err).Msg("diagnosis payload could not be decoded")
		return nil, err
	}

	next, dropped := buildSnapshot(records)
	if dropped > 0 {
		logger.Warn().
			Int("dropped", dropped).
			Int("received", len(records)).
			Msg("diagnosis records without issue_id were dropped")
	}

	r.mu.Lock()
	next.revision = r.snap.revision + 1
	r.snap = next
	r.mu.Unlock()

	logger.Info().
		Int("issues", len(next.issues)).
		Uint64("revision", next.revision).
		Msg("diagnosis snapshot replaced")

	return next.issues, nil
}

// buildSnapshot keeps detection order. A repeated issue_id updates the earlier record in
// place so one id never maps to two entries. Records without an id are dropped and
// counted.
func buildSnapshot(records []api.Issue) (snapshot, int) {
	snap := snapshot{
		issues: make([]domain.Issue, 0, len(records)),
		index:  make(map[string]int, len(records)),
	}
	dropped := 0
	for _, record := range records {
		issue := adapters.MapAPIIssueToDomain(record)
		if issue.ID == "" {
			dropped++
			continue
		}
		if pos, ok := snap.index[issue.ID]; ok {
			snap.issues[pos] = issue
			continue
		}
		snap.index[issue.ID] = len(snap.issues)
		snap.issues = append(snap.issues, issue)
	}
	return snap, dropped
}

func (r *DefaultRegistry) Get(issueID string) (domain.Issue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.snap.index[issueID]
	if !ok {
		return domain.Issue{}, false
	}
	return r.snap.issues[pos].Clone(), true
}

func (r *DefaultRegistry) List() []domain.Issue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneIssues(r.snap.issues)
}

// Revision counts successful refreshes.
func (r *DefaultRegistry) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.revision
}

func cloneIssues(issues []domain.Issue) []domain.Issue {
	out := make([]domain.Issue, len(issues))
	for i, issue := range issues {
		out[i] = issue.Clone()
	}
	return out
}

package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/autofixer/pkg/adapters"
	"github.com/de-tools/autofixer/pkg/models/api"
	"github.com/de-tools/autofixer/pkg/models/domain"
	"github.com/de-tools/autofixer/pkg/services/registry"
	"github.com/de-tools/autofixer/pkg/services/remote"
	"github.com/rs/zerolog"
)

type Controller interface {
	Diagnose(ctx context.Context) ([]domain.Issue, error)
	RequestFix(ctx context.Context, issueID string) (domain.FixProposal, error)
	// ApplyFix applies the stored proposal. A non-zero generatedAt must match it.
	ApplyFix(ctx context.Context, issueID string, generatedAt uint64) (domain.ApplyResult, error)
	Benchmark(ctx context.Context, proposal domain.FixProposal) (domain.BenchmarkResult, error)
	Cancel(ctx context.Context, issueID string) (domain.IssueStatus, error)
	Status(issueID string) (domain.IssueStatus, error)
}

type entry struct {
	state    domain.LifecycleState
	version  uint64
	proposal *domain.FixProposal
	// issue is the registry record the current proposal was requested for.
	issue domain.Issue
}

// DefaultController tracks per-issue workflow state. The mutex guards only the entry map
// and is never held across a backend call.
type DefaultController struct {
	registry registry.Registry
	caller   remote.Caller

	mu      sync.Mutex
	seq     uint64
	entries map[string]*entry
}

func NewController(reg registry.Registry, caller remote.Caller) *DefaultController {
	return &DefaultController{
		registry: reg,
		caller:   caller,
		entries:  make(map[string]*entry),
	}
}

// Diagnose refreshes the registry and forgets idle entries that are finished or no longer
// detected, so a re-surfaced issue starts again at Discovered.
func (ctrl *DefaultController) Diagnose(ctx context.Context) ([]domain.Issue, error) {
	issues, err := ctrl.registry.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(issues))
	for _, issue := range issues {
		present[issue.ID] = struct{}{}
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	for id, e := range ctrl.entries {
		if e.state.IsActive() {
			continue
		}
		if _, ok := present[id]; !ok || e.state.IsTerminal() {
			delete(ctrl.entries, id)
		}
	}
	return issues, nil
}

func (ctrl *DefaultController) RequestFix(ctx context.Context, issueID string) (domain.FixProposal, error) {
	logger := zerolog.Ctx(ctx).With().Str("issue_id", issueID).Logger()

	issue, ok := ctrl.registry.Get(issueID)
	if !ok {
		return domain.FixProposal{}, fmt.Errorf("%w: %s", ErrIssueNotFound, issueID)
	}

	ctrl.mu.Lock()
	e := ctrl.entryLocked(issueID)
	if e.state.IsActive() {
		state := e.state
		ctrl.mu.Unlock()
		return domain.FixProposal{}, fmt.Errorf("%w: %s is %s", ErrAlreadyInProgress, issueID, state)
	}
	from := e.state
	version := ctrl.advanceLocked(e, domain.StateProposalRequested)
	e.proposal = nil
	e.issue = issue
	ctrl.mu.Unlock()
	ctrl.logTransition(&logger, from, domain.StateProposalRequested)

	proposal, err := ctrl.generate(ctx, issue)

	ctrl.mu.Lock()
	e, ok = ctrl.entries[issueID]
	if !ok || e.version != version {
		ctrl.mu.Unlock()
		discardedResults.WithLabelValues("generate_fix").Inc()
		logger.Warn().Err(err).Msg("discarding fix proposal for reset issue")
		return domain.FixProposal{}, fmt.Errorf("%w: %s", ErrCancelled, issueID)
	}
	if err != nil {
		e.state = domain.StateFailed
		ctrl.mu.Unlock()
		ctrl.logTransition(&logger, domain.StateProposalRequested, domain.StateFailed)
		return domain.FixProposal{}, fmt.Errorf("generate fix for issue %s: %w", issueID, err)
	}
	proposal.GeneratedAt = version
	e.state = domain.StateProposalReady
	e.proposal = &proposal
	result := proposal.Clone()
	ctrl.mu.Unlock()
	ctrl.logTransition(&logger, domain.StateProposalRequested, domain.StateProposalReady)

	return result, nil
}

func (ctrl *DefaultController) generate(ctx context.Context, issue domain.Issue) (domain.FixProposal, error) {
	raw, err := ctrl.caller.Call(ctx, remote.EndpointGenerateFix, adapters.MapDomainIssueToAPI(issue))
	if err != nil {
		return domain.FixProposal{}, err
	}

	var resp api.FixProposal
	if err := remote.Decode(remote.EndpointGenerateFix, raw, &resp); err != nil {
		return domain.FixProposal{}, err
	}
	proposal := adapters.MapAPIProposalToDomain(resp)
	if proposal.IssueID == "" {
		proposal.IssueID = issue.ID
	}
	if proposal.IssueID != issue.ID {
		return domain.FixProposal{}, fmt.Errorf("%w: proposal targets issue %q", remote.ErrMalformed, proposal.IssueID)
	}
	return proposal, nil
}

func (ctrl *DefaultController) ApplyFix(
	ctx context.Context,
	issueID string,
	generatedAt uint64,
) (domain.ApplyResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("issue_id", issueID).Logger()

	ctrl.mu.Lock()
	e, ok := ctrl.entries[issueID]
	if !ok || e.state != domain.StateProposalReady || e.proposal == nil {
		ctrl.mu.Unlock()
		return domain.ApplyResult{}, fmt.Errorf("%w: %s", ErrNoProposal, issueID)
	}
	if generatedAt != 0 && generatedAt != e.proposal.GeneratedAt {
		current := e.proposal.GeneratedAt
		ctrl.mu.Unlock()
		return domain.ApplyResult{}, fmt.Errorf("%w: %s has proposal %d, got %d",
			ErrStaleProposal, issueID, current, generatedAt)
	}
	if current, found := ctrl.registry.Get(issueID); !found || !current.Equal(e.issue) {
		ctrl.advanceLocked(e, domain.StateDiscovered)
		e.proposal = nil
		ctrl.mu.Unlock()
		ctrl.logTransition(&logger, domain.StateProposalReady, domain.StateDiscovered)
		return domain.ApplyResult{}, fmt.Errorf("%w: %s changed since the proposal was generated",
			ErrStaleProposal, issueID)
	}
	proposal := e.proposal.Clone()
	version := ctrl.advanceLocked(e, domain.StateApplying)
	ctrl.mu.Unlock()
	ctrl.logTransition(&logger, domain.StateProposalReady, domain.StateApplying)

	result, err := ctrl.apply(ctx, proposal)

	ctrl.mu.Lock()
	e, ok = ctrl.entries[issueID]
	if !ok || e.version != version {
		ctrl.mu.Unlock()
		discardedResults.WithLabelValues("apply_fix").Inc()
		logger.Warn().Err(err).Msg("discarding apply result for reset issue")
		return domain.ApplyResult{}, fmt.Errorf("%w: %s", ErrCancelled, issueID)
	}
	e.proposal = nil
	to := domain.StateApplied
	if err != nil || !result.Succeeded() {
		to = domain.StateFailed
	}
	e.state = to
	ctrl.mu.Unlock()
	ctrl.logTransition(&logger, domain.StateApplying, to)

	if err != nil {
		return domain.ApplyResult{}, fmt.Errorf("apply fix for issue %s: %w", issueID, err)
	}
	return result, nil
}

func (ctrl *DefaultController) apply(ctx context.Context, proposal domain.FixProposal) (domain.ApplyResult, error) {
	raw, err := ctrl.caller.Call(ctx, remote.EndpointApplyFix, adapters.MapDomainProposalToAPI(proposal))
	if err != nil {
		return domain.ApplyResult{}, err
	}

	var resp api.ApplyResult
	if err := remote.Decode(remote.EndpointApplyFix, raw, &resp); err != nil {
		return domain.ApplyResult{}, err
	}
	return adapters.MapAPIApplyResultToDomain(resp), nil
}

// Benchmark forwards the stored proposal when one is ready, otherwise the supplied one.
// It never changes lifecycle state.
func (ctrl *DefaultController) Benchmark(
	ctx context.Context,
	proposal domain.FixProposal,
) (domain.BenchmarkResult, error) {
	ctrl.mu.Lock()
	if e, ok := ctrl.entries[proposal.IssueID]; ok && e.state == domain.StateProposalReady && e.proposal != nil {
		proposal = e.proposal.Clone()
	}
	ctrl.mu.Unlock()

	raw, err := ctrl.caller.Call(ctx, remote.EndpointBenchmark, adapters.MapDomainProposalToAPI(proposal))
	if err != nil {
		return domain.BenchmarkResult{}, fmt.Errorf("benchmark issue %s: %w", proposal.IssueID, err)
	}

	var resp api.BenchmarkResult
	if err := remote.Decode(remote.EndpointBenchmark, raw, &resp); err != nil {
		return domain.BenchmarkResult{}, fmt.Errorf("benchmark issue %s: %w", proposal.IssueID, err)
	}
	return adapters.MapAPIBenchmarkToDomain(resp), nil
}

// Cancel resets a non-terminal issue to Discovered and drops its proposal. An in-flight
// backend call is not interrupted; its result is discarded when it arrives.
func (ctrl *DefaultController) Cancel(ctx context.Context, issueID string) (domain.IssueStatus, error) {
	logger := zerolog.Ctx(ctx).With().Str("issue_id", issueID).Logger()

	ctrl.mu.Lock()
	e, ok := ctrl.entries[issueID]
	if !ok {
		ctrl.mu.Unlock()
		return ctrl.Status(issueID)
	}
	from := e.state
	if !from.IsTerminal() && from != domain.StateDiscovered {
		ctrl.advanceLocked(e, domain.StateDiscovered)
		e.proposal = nil
	}
	status := statusOf(issueID, e)
	ctrl.mu.Unlock()

	if status.State != from {
		ctrl.logTransition(&logger, from, status.State)
	}
	return status, nil
}

func (ctrl *DefaultController) Status(issueID string) (domain.IssueStatus, error) {
	ctrl.mu.Lock()
	e, ok := ctrl.entries[issueID]
	if ok {
		status := statusOf(issueID, e)
		ctrl.mu.Unlock()
		return status, nil
	}
	ctrl.mu.Unlock()

	if _, found := ctrl.registry.Get(issueID); !found {
		return domain.IssueStatus{}, fmt.Errorf("%w: %s", ErrIssueNotFound, issueID)
	}
	return domain.IssueStatus{IssueID: issueID, State: domain.StateDiscovered}, nil
}

func (ctrl *DefaultController) entryLocked(issueID string) *entry {
	e, ok := ctrl.entries[issueID]
	if !ok {
		e = &entry{state: domain.StateDiscovered}
		ctrl.entries[issueID] = e
	}
	return e
}

// advanceLocked moves e to state under a fresh controller-wide version, which invalidates
// any result still in flight for the previous version.
func (ctrl *DefaultController) advanceLocked(e *entry, state domain.LifecycleState) uint64 {
	ctrl.seq++
	e.version = ctrl.seq
	e.state = state
	return e.version
}

func (ctrl *DefaultController) logTransition(logger *zerolog.Logger, from, to domain.LifecycleState) {
	recordTransition(from, to)
	logger.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("issue lifecycle transition")
}

func statusOf(issueID string, e *entry) domain.IssueStatus {
	status := domain.IssueStatus{
		IssueID: issueID,
		State:   e.state,
		Version: e.version,
	}
	if e.proposal != nil {
		p := e.proposal.Clone()
		status.Proposal = &p
	}
	return status
}

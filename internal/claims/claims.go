// Package claims implements ClaimLifecycle (C3): the dual declared/converged
// entry path onto a project's constitutional blueprint claims, the
// deterministic promotion gate, and the append-only audit trail of both.
// The precondition-chain style mirrors the teacher's internal/validation
// issue validators (Chain of small predicates, first failure wins).
package claims

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tjpilant/idse-spine/internal/config"
	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/fingerprint"
	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/types"
)

// Lifecycle is the ClaimLifecycle component. It is the only caller permitted
// to mutate blueprint_claims, promotion_records, and claim_lifecycle_events
// rows.
type Lifecycle struct {
	store storage.Storage
}

// New builds a Lifecycle over the given storage backend.
func New(store storage.Storage) *Lifecycle {
	return &Lifecycle{store: store}
}

// precondition is a small composable predicate over a claim, in the style of
// the teacher's validation.IssueValidator chain.
type precondition func(c *types.BlueprintClaim) error

func chain(preconditions ...precondition) precondition {
	return func(c *types.BlueprintClaim) error {
		for _, p := range preconditions {
			if err := p(c); err != nil {
				return err
			}
		}
		return nil
	}
}

func exists() precondition {
	return func(c *types.BlueprintClaim) error {
		if c == nil {
			return fmt.Errorf("claim: %w", types.ErrNotFound)
		}
		return nil
	}
}

func isActive() precondition {
	return func(c *types.BlueprintClaim) error {
		if c.Status != types.ClaimActive {
			return fmt.Errorf("claim %d has status %s: %w", c.ID, c.Status, types.ErrLifecycleViolation)
		}
		return nil
	}
}

// Declare records a new claim entered directly by a human author (origin =
// declared). Declared claims bypass the promotion gate: the claim is inserted
// as active directly, with no PromotionRecord behind it.
func (l *Lifecycle) Declare(ctx context.Context, projectID int64, classification types.ClaimClassification, claimText, actor string) (*types.BlueprintClaim, error) {
	c := &types.BlueprintClaim{
		ProjectID:      projectID,
		Classification: classification,
		ClaimText:      claimText,
		Origin:         types.OriginDeclared,
		Status:         types.ClaimActive,
	}
	saved, err := l.store.InsertClaim(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("declare claim: %w", err)
	}
	l.recordEvent(ctx, saved.ID, "", types.ClaimActive, "declared", actor)
	return saved, nil
}

// ConvergeCandidate is a statement surfaced by repeated appearance across
// sessions/stages, offered to the promotion gate rather than written
// directly (origin = converged).
type ConvergeCandidate struct {
	ClaimText      string
	Classification types.ClaimClassification
	Evidence       []types.EvidenceArtifact
}

// Promote evaluates a candidate claim against every gate in
// types.GateOrder, in order, and either inserts the claim (origin =
// converged, status = active) or returns a *types.GateDeniedError. Every
// evaluation — allowed or denied — is recorded as a PromotionRecord
// (spec.md §4.3.2: "every evaluation is recorded, not just successful
// promotions").
func (l *Lifecycle) Promote(ctx context.Context, projectID int64, cand ConvergeCandidate, actor string) (*types.BlueprintClaim, error) {
	active, err := l.store.ListActiveClaims(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("promote: list active claims: %w", err)
	}

	var failing []types.GateCode
	for _, code := range types.GateOrder {
		if ok := evaluateGate(code, cand, active); !ok {
			failing = append(failing, code)
		}
	}

	record := &types.PromotionRecord{
		ProjectID:          projectID,
		CandidateClaimText: cand.ClaimText,
		Classification:     cand.Classification,
		EvidenceHash:       evidenceHash(cand.Evidence),
		SourceSessions:      sessionSet(cand.Evidence),
		SourceStages:        stageSet(cand.Evidence),
		FeedbackArtifacts:   feedbackSet(cand.Evidence),
		Reasons:            failing,
	}

	if len(failing) > 0 {
		record.Decision = types.DecisionDeny
		if _, err := l.store.InsertPromotionRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("promote: record denial: %w", err)
		}
		debug.LogEvent(debug.Event{Entity: "promotion", ID: projectID, Op: "deny", Actor: actor})
		return nil, types.NewGateDenied(failing)
	}

	record.Decision = types.DecisionAllow
	saved, err := l.store.InsertPromotionRecord(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("promote: record approval: %w", err)
	}

	c := &types.BlueprintClaim{
		ProjectID:         projectID,
		Classification:    cand.Classification,
		ClaimText:         cand.ClaimText,
		Origin:            types.OriginConverged,
		Status:            types.ClaimActive,
		PromotionRecordID: &saved.ID,
	}
	claim, err := l.store.InsertClaim(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("promote: insert claim: %w", err)
	}
	l.recordEvent(ctx, claim.ID, "", types.ClaimActive, "promoted", actor)
	debug.LogEvent(debug.Event{Entity: "claim", ID: claim.ID, Op: "promote", Actor: actor})
	return claim, nil
}

// Supersede marks claim old as superseded by claim replacement, both of
// which must currently be active.
func (l *Lifecycle) Supersede(ctx context.Context, oldClaimID, replacementID int64, reason, actor string) error {
	old, err := l.store.GetClaim(ctx, oldClaimID)
	if err != nil {
		return fmt.Errorf("supersede: %w", err)
	}
	if err := chain(exists(), isActive())(old); err != nil {
		return fmt.Errorf("supersede claim %d: %w", oldClaimID, err)
	}
	replacement, err := l.store.GetClaim(ctx, replacementID)
	if err != nil {
		return fmt.Errorf("supersede: replacement: %w", err)
	}
	if err := chain(exists(), isActive())(replacement); err != nil {
		return fmt.Errorf("supersede claim %d: replacement %d: %w", oldClaimID, replacementID, err)
	}

	if err := l.store.UpdateClaimStatus(ctx, oldClaimID, types.ClaimSuperseded, &replacementID); err != nil {
		return fmt.Errorf("supersede claim %d: %w", oldClaimID, err)
	}
	l.recordEvent(ctx, oldClaimID, types.ClaimActive, types.ClaimSuperseded, reason, actor)
	return nil
}

// Invalidate marks an active claim invalidated, e.g. after contradicting
// feedback evidence.
func (l *Lifecycle) Invalidate(ctx context.Context, claimID int64, reason, actor string) error {
	c, err := l.store.GetClaim(ctx, claimID)
	if err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	if err := chain(exists(), isActive())(c); err != nil {
		return fmt.Errorf("invalidate claim %d: %w", claimID, err)
	}

	if err := l.store.UpdateClaimStatus(ctx, claimID, types.ClaimInvalidated, nil); err != nil {
		return fmt.Errorf("invalidate claim %d: %w", claimID, err)
	}
	l.recordEvent(ctx, claimID, types.ClaimActive, types.ClaimInvalidated, reason, actor)
	return nil
}

func (l *Lifecycle) recordEvent(ctx context.Context, claimID int64, oldStatus, newStatus types.ClaimStatus, reason, actor string) {
	_, err := l.store.InsertClaimLifecycleEvent(ctx, &types.ClaimLifecycleEvent{
		ClaimID: claimID, OldStatus: oldStatus, NewStatus: newStatus, Reason: reason, Actor: actor,
	})
	if err != nil {
		// Lifecycle events are audit trail, not control flow: a failed write
		// is logged, never propagated to the caller whose mutation already
		// committed.
		debug.Errorf("record claim lifecycle event for %d: %v", claimID, err)
	}
}

// evaluateGate reports whether candidate passes the named gate given the
// project's currently active claims.
func evaluateGate(code types.GateCode, cand ConvergeCandidate, active []*types.BlueprintClaim) bool {
	switch code {
	case types.GateNotConstitutional:
		for _, allowed := range types.ConstitutionalClassifications {
			if cand.Classification == allowed {
				return true
			}
		}
		return false

	case types.GateInsufficientSessionDiversity:
		return len(sessionSet(cand.Evidence)) >= 2

	case types.GateInsufficientStageDiversity:
		return len(stageSet(cand.Evidence)) >= 2

	case types.GateInsufficientTemporalStability:
		return temporalSpan(cand.Evidence) >= config.TemporalStabilityWindow()

	case types.GateNoFeedbackEvidence:
		for _, e := range cand.Evidence {
			if e.Stage == types.StageFeedback {
				return true
			}
		}
		return false

	case types.GateContradictedByFeedback:
		for _, e := range cand.Evidence {
			if e.FeedbackKind == "contradiction" {
				return false
			}
		}
		return true

	case types.GateDuplicateStatement:
		threshold := config.DuplicateSimilarityThreshold()
		for _, other := range active {
			if fingerprint.Similarity(cand.ClaimText, other.ClaimText) >= threshold {
				return false
			}
		}
		return true

	default:
		return true
	}
}

func sessionSet(evidence []types.EvidenceArtifact) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range evidence {
		if !seen[e.SessionID] {
			seen[e.SessionID] = true
			out = append(out, e.SessionID)
		}
	}
	return out
}

func stageSet(evidence []types.EvidenceArtifact) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range evidence {
		s := string(e.Stage)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func feedbackSet(evidence []types.EvidenceArtifact) []string {
	var out []string
	for _, e := range evidence {
		if e.FeedbackKind != "" {
			out = append(out, e.IDSEID)
		}
	}
	return out
}

func temporalSpan(evidence []types.EvidenceArtifact) time.Duration {
	if len(evidence) == 0 {
		return 0
	}
	earliest, latest := evidence[0].CreatedAt, evidence[0].CreatedAt
	for _, e := range evidence[1:] {
		if e.CreatedAt.Before(earliest) {
			earliest = e.CreatedAt
		}
		if e.CreatedAt.After(latest) {
			latest = e.CreatedAt
		}
	}
	return latest.Sub(earliest)
}

// evidenceHash computes SHA256(sorted(idse_ids) ++ sorted(feedback_artifact_ids))
// per spec.md §4.3.2, e.g. SHA256(sorted(["orch::s1::spec","orch::s1::plan"])).
func evidenceHash(evidence []types.EvidenceArtifact) string {
	idseIDs := make([]string, len(evidence))
	for i, e := range evidence {
		idseIDs[i] = e.IDSEID
	}
	sort.Strings(idseIDs)

	feedbackIDs := feedbackSet(evidence)
	sort.Strings(feedbackIDs)

	var all string
	for _, id := range idseIDs {
		all += id
	}
	for _, id := range feedbackIDs {
		all += id
	}
	return fingerprint.ContentHash(all)
}

// Package projection implements ProjectionFileView (C5): deterministic,
// idempotent regeneration of the two markdown views a project exposes over
// its database state. blueprint.md is append-only (new constitutional
// claims are appended, never reordered); meta.md is fully regenerated every
// call from current session/claim state, the way the teacher's export
// package treats JSONL as a derived, disposable projection of the database
// (internal/export/config.go).
package projection

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/types"
)

// View is the ProjectionFileView component.
type View struct {
	store storage.Storage
}

// New builds a View over the given storage backend.
func New(store storage.Storage) *View {
	return &View{store: store}
}

// RenderBlueprint appends any active claims not yet present in existing
// (matched by claim ID marker) and returns the updated document. Callers
// persist the result back to blueprint.md themselves; this keeps the
// component free of filesystem concerns, matching the rest of the spine's
// layering (storage -> component -> CLI).
func (v *View) RenderBlueprint(ctx context.Context, projectID int64, existing string) (string, error) {
	claims, err := v.store.ListActiveClaims(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("render blueprint: %w", err)
	}

	var out strings.Builder
	out.WriteString(existing)
	if existing == "" {
		out.WriteString("# Blueprint\n\n")
	}

	for _, c := range claims {
		marker := fmt.Sprintf("<!-- claim:%d -->", c.ID)
		if strings.Contains(existing, marker) {
			continue
		}
		fmt.Fprintf(&out, "\n%s\n### [%s] %s\n\n%s\n", marker, c.Classification, humanize.Time(c.CreatedAt), c.ClaimText)
	}

	return out.String(), nil
}

// RenderMeta fully regenerates meta.md: the active sessions list, a session
// matrix (stage completion per session), and the deduplicated promotion
// history. No lineage graph is rendered into meta.md; LineageGraph serves
// per-artifact lineage separately. Using an ordered map
// keeps section and session iteration order reproducible across runs, so
// two regenerations of unchanged state produce byte-identical output
// (spec.md §4.5: "regeneration must be idempotent").
func (v *View) RenderMeta(ctx context.Context, projectID int64) (string, error) {
	sessions, err := v.store.ListSessions(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("render meta: list sessions: %w", err)
	}
	records, err := v.store.ListPromotionRecords(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("render meta: list promotion records: %w", err)
	}

	var out strings.Builder
	out.WriteString("# Project Metadata\n\n")

	out.WriteString("## Active Sessions\n\n")
	var active []string
	for _, sess := range sessions {
		if sess.SessionID == types.BlueprintSessionID || isActiveStatus(sess.Status) {
			active = append(active, sess.SessionID)
		}
	}
	if len(active) == 0 {
		out.WriteString("-\n")
	} else {
		for _, id := range active {
			fmt.Fprintf(&out, "- %s\n", id)
		}
	}

	out.WriteString("\n## Session Matrix\n\n")
	out.WriteString("| Session | Type | Status | Stages Present |\n")
	out.WriteString("|---|---|---|---|\n")
	for _, sess := range sessions {
		present, err := v.store.ListArtifactsBySession(ctx, sess.ID)
		if err != nil {
			return "", fmt.Errorf("render meta: list artifacts for session %s: %w", sess.SessionID, err)
		}
		have := map[types.Stage]bool{}
		for _, a := range present {
			have[a.Stage] = true
		}
		stages := orderedmap.New[types.Stage, bool]()
		for _, stage := range types.RequiredStages {
			stages.Set(stage, have[stage])
		}
		fmt.Fprintf(&out, "| %s | %s | %s | %s |\n", sess.SessionID, sess.Type, sess.Status, presentStages(stages))
	}

	out.WriteString("\n## Promotion History\n\n")
	// Dedup by (claim_text, evidence_hash), keeping the latest entry per
	// spec.md §4.5. ListPromotionRecords returns rows oldest-first, so
	// repeatedly Set-ing the same key leaves its position but replaces its
	// value with the most recent record seen for that key.
	history := orderedmap.New[string, *types.PromotionRecord]()
	for _, r := range records {
		key := r.CandidateClaimText + "\x00" + r.EvidenceHash
		history.Set(key, r)
	}
	for pair := history.Oldest(); pair != nil; pair = pair.Next() {
		r := pair.Value
		fmt.Fprintf(&out, "- `%s` %s (%s) — %s\n", humanize.Time(r.CreatedAt), r.Decision, r.Classification, truncate(r.CandidateClaimText, 80))
	}

	return out.String(), nil
}

// isActiveStatus reports whether a session's status counts as "active" for
// the meta.md active-sessions list (spec.md §4.5): draft, in_progress, or
// review, as distinct from the unfiltered session matrix, which includes
// every session regardless of status.
func isActiveStatus(status types.SessionStatus) bool {
	switch status {
	case types.StatusDraft, types.StatusInProgress, types.StatusReview:
		return true
	default:
		return false
	}
}

func presentStages(stages *orderedmap.OrderedMap[types.Stage, bool]) string {
	var names []string
	for pair := stages.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value {
			names = append(names, string(pair.Key))
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// LineageGraph returns the upstream dependency chain for an artifact, as a
// path from the artifact itself to its root. At each step it follows the
// first upstream dependency returned; other upstream edges are not followed.
func (v *View) LineageGraph(ctx context.Context, artifactID int64) ([]*types.Artifact, error) {
	var chain []*types.Artifact
	current, err := v.store.GetArtifact(ctx, artifactID)
	if err != nil {
		return nil, fmt.Errorf("lineage graph: %w", err)
	}
	chain = append(chain, current)

	visited := map[int64]bool{current.ID: true}
	for {
		deps, err := v.store.GetDependencies(ctx, current.ID, types.DirectionUpstream)
		if err != nil {
			return nil, fmt.Errorf("lineage graph: %w", err)
		}
		if len(deps) == 0 {
			break
		}
		next := deps[0] // follow the primary upstream edge
		if visited[next.ID] {
			break // guards against a cycle slipping past write-time checks
		}
		visited[next.ID] = true
		chain = append(chain, next)
		current = next
	}
	return chain, nil
}

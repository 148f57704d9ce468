package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tjpilant/idse-spine/internal/types"
)

func insertClaim(ctx context.Context, q querier, c *types.BlueprintClaim) (*types.BlueprintClaim, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO blueprint_claims (project_id, classification, claim_text, origin, status, promotion_record_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ProjectID, c.Classification, c.ClaimText, c.Origin, c.Status, c.PromotionRecordID)
	if err != nil {
		return nil, fmt.Errorf("insert claim: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert claim: last insert id: %w", err)
	}
	return getClaim(ctx, q, id)
}

func updateClaimStatus(ctx context.Context, q querier, claimID int64, status types.ClaimStatus, supersededBy *int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE blueprint_claims SET status = ?, superseded_by = ? WHERE id = ?
	`, status, supersededBy, claimID)
	if err != nil {
		return fmt.Errorf("update claim status %d: %w", claimID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("claim %d: %w", claimID, types.ErrNotFound)
	}
	return nil
}

func getClaim(ctx context.Context, q querier, claimID int64) (*types.BlueprintClaim, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, classification, claim_text, origin, status, promotion_record_id, created_at, superseded_by
		FROM blueprint_claims WHERE id = ?
	`, claimID)
	return scanClaim(row)
}

func scanClaim(row *sql.Row) (*types.BlueprintClaim, error) {
	c := &types.BlueprintClaim{}
	if err := row.Scan(&c.ID, &c.ProjectID, &c.Classification, &c.ClaimText, &c.Origin, &c.Status, &c.PromotionRecordID, &c.CreatedAt, &c.SupersededBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("claim: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	return c, nil
}

func listClaims(ctx context.Context, q querier, projectID int64, activeOnly bool) ([]*types.BlueprintClaim, error) {
	query := `
		SELECT id, project_id, classification, claim_text, origin, status, promotion_record_id, created_at, superseded_by
		FROM blueprint_claims WHERE project_id = ?
	`
	if activeOnly {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []*types.BlueprintClaim
	for rows.Next() {
		c := &types.BlueprintClaim{}
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Classification, &c.ClaimText, &c.Origin, &c.Status, &c.PromotionRecordID, &c.CreatedAt, &c.SupersededBy); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func insertPromotionRecord(ctx context.Context, q querier, r *types.PromotionRecord) (*types.PromotionRecord, error) {
	sourceSessions, _ := json.Marshal(r.SourceSessions)
	sourceStages, _ := json.Marshal(r.SourceStages)
	feedbackArtifacts, _ := json.Marshal(r.FeedbackArtifacts)
	reasons, _ := json.Marshal(r.Reasons)

	res, err := q.ExecContext(ctx, `
		INSERT INTO promotion_records (project_id, candidate_claim_text, classification, evidence_hash, source_sessions, source_stages, feedback_artifacts, decision, reasons)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ProjectID, r.CandidateClaimText, r.Classification, r.EvidenceHash, string(sourceSessions), string(sourceStages), string(feedbackArtifacts), r.Decision, string(reasons))
	if err != nil {
		return nil, fmt.Errorf("insert promotion record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert promotion record: last insert id: %w", err)
	}
	return getPromotionRecord(ctx, q, id)
}

func getPromotionRecord(ctx context.Context, q querier, id int64) (*types.PromotionRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, candidate_claim_text, classification, evidence_hash, source_sessions, source_stages, feedback_artifacts, decision, reasons, created_at
		FROM promotion_records WHERE id = ?
	`, id)
	return scanPromotionRecord(row)
}

func scanPromotionRecord(row *sql.Row) (*types.PromotionRecord, error) {
	r := &types.PromotionRecord{}
	var sourceSessions, sourceStages, feedbackArtifacts, reasons string
	if err := row.Scan(&r.ID, &r.ProjectID, &r.CandidateClaimText, &r.Classification, &r.EvidenceHash, &sourceSessions, &sourceStages, &feedbackArtifacts, &r.Decision, &reasons, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("promotion record: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("scan promotion record: %w", err)
	}
	_ = json.Unmarshal([]byte(sourceSessions), &r.SourceSessions)
	_ = json.Unmarshal([]byte(sourceStages), &r.SourceStages)
	_ = json.Unmarshal([]byte(feedbackArtifacts), &r.FeedbackArtifacts)
	_ = json.Unmarshal([]byte(reasons), &r.Reasons)
	return r, nil
}

func listPromotionRecords(ctx context.Context, q querier, projectID int64) ([]*types.PromotionRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, candidate_claim_text, classification, evidence_hash, source_sessions, source_stages, feedback_artifacts, decision, reasons, created_at
		FROM promotion_records WHERE project_id = ? ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list promotion records: %w", err)
	}
	defer rows.Close()

	var out []*types.PromotionRecord
	for rows.Next() {
		r := &types.PromotionRecord{}
		var sourceSessions, sourceStages, feedbackArtifacts, reasons string
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.CandidateClaimText, &r.Classification, &r.EvidenceHash, &sourceSessions, &sourceStages, &feedbackArtifacts, &r.Decision, &reasons, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan promotion record: %w", err)
		}
		_ = json.Unmarshal([]byte(sourceSessions), &r.SourceSessions)
		_ = json.Unmarshal([]byte(sourceStages), &r.SourceStages)
		_ = json.Unmarshal([]byte(feedbackArtifacts), &r.FeedbackArtifacts)
		_ = json.Unmarshal([]byte(reasons), &r.Reasons)
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertClaimLifecycleEvent(ctx context.Context, q querier, e *types.ClaimLifecycleEvent) (*types.ClaimLifecycleEvent, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO claim_lifecycle_events (claim_id, old_status, new_status, reason, actor)
		VALUES (?, ?, ?, ?, ?)
	`, e.ClaimID, e.OldStatus, e.NewStatus, e.Reason, e.Actor)
	if err != nil {
		return nil, fmt.Errorf("insert claim lifecycle event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert claim lifecycle event: last insert id: %w", err)
	}
	row := q.QueryRowContext(ctx, `
		SELECT id, claim_id, old_status, new_status, reason, actor, created_at
		FROM claim_lifecycle_events WHERE id = ?
	`, id)
	out := &types.ClaimLifecycleEvent{}
	if err := row.Scan(&out.ID, &out.ClaimID, &out.OldStatus, &out.NewStatus, &out.Reason, &out.Actor, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan claim lifecycle event: %w", err)
	}
	return out, nil
}

func listClaimLifecycleEvents(ctx context.Context, q querier, claimID int64) ([]*types.ClaimLifecycleEvent, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, claim_id, old_status, new_status, reason, actor, created_at
		FROM claim_lifecycle_events WHERE claim_id = ? ORDER BY created_at ASC
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list claim lifecycle events: %w", err)
	}
	defer rows.Close()

	var out []*types.ClaimLifecycleEvent
	for rows.Next() {
		e := &types.ClaimLifecycleEvent{}
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.OldStatus, &e.NewStatus, &e.Reason, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan claim lifecycle event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) InsertClaim(ctx context.Context, c *types.BlueprintClaim) (*types.BlueprintClaim, error) {
	return insertClaim(ctx, s.q(), c)
}
func (s *Store) UpdateClaimStatus(ctx context.Context, claimID int64, status types.ClaimStatus, supersededBy *int64) error {
	return updateClaimStatus(ctx, s.q(), claimID, status, supersededBy)
}
func (s *Store) GetClaim(ctx context.Context, claimID int64) (*types.BlueprintClaim, error) {
	return getClaim(ctx, s.q(), claimID)
}
func (s *Store) ListActiveClaims(ctx context.Context, projectID int64) ([]*types.BlueprintClaim, error) {
	return listClaims(ctx, s.q(), projectID, true)
}
func (s *Store) ListAllClaims(ctx context.Context, projectID int64) ([]*types.BlueprintClaim, error) {
	return listClaims(ctx, s.q(), projectID, false)
}
func (s *Store) InsertPromotionRecord(ctx context.Context, r *types.PromotionRecord) (*types.PromotionRecord, error) {
	return insertPromotionRecord(ctx, s.q(), r)
}
func (s *Store) ListPromotionRecords(ctx context.Context, projectID int64) ([]*types.PromotionRecord, error) {
	return listPromotionRecords(ctx, s.q(), projectID)
}
func (s *Store) InsertClaimLifecycleEvent(ctx context.Context, e *types.ClaimLifecycleEvent) (*types.ClaimLifecycleEvent, error) {
	return insertClaimLifecycleEvent(ctx, s.q(), e)
}
func (s *Store) ListClaimLifecycleEvents(ctx context.Context, claimID int64) ([]*types.ClaimLifecycleEvent, error) {
	return listClaimLifecycleEvents(ctx, s.q(), claimID)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/fingerprint"
	"github.com/tjpilant/idse-spine/internal/types"
)

func saveArtifact(ctx context.Context, q querier, sessionRowID int64, projectName, sessionID string, stage types.Stage, content string) (*types.Artifact, error) {
	contentHash := fingerprint.ContentHash(content)
	fp := fingerprint.Fingerprint(content)

	row := q.QueryRowContext(ctx, `SELECT idse_id FROM artifacts WHERE session_id = ? AND stage = ?`, sessionRowID, stage)
	var existingID string
	err := row.Scan(&existingID)
	switch {
	case err == nil:
		_, err := q.ExecContext(ctx, `
			UPDATE artifacts SET content = ?, content_hash = ?, fingerprint = ?, updated_at = CURRENT_TIMESTAMP
			WHERE idse_id = ?
		`, content, contentHash, fp, existingID)
		if err != nil {
			return nil, fmt.Errorf("update artifact %s/%s: %w", sessionID, stage, err)
		}
		debug.LogEvent(debug.Event{Entity: "artifact", ID: existingID, Op: "update"})
	case errors.Is(err, sql.ErrNoRows):
		idseID := fmt.Sprintf("%s::%s::%s", projectName, sessionID, stage)
		_, err := q.ExecContext(ctx, `
			INSERT INTO artifacts (session_id, idse_id, stage, content, content_hash, fingerprint)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sessionRowID, idseID, stage, content, contentHash, fp)
		if err != nil {
			return nil, fmt.Errorf("insert artifact %s/%s: %w", sessionID, stage, err)
		}
		existingID = idseID
		debug.LogEvent(debug.Event{Entity: "artifact", ID: idseID, Op: "create"})
	default:
		return nil, fmt.Errorf("lookup artifact %s/%s: %w", sessionID, stage, err)
	}

	return getArtifactByIDSEID(ctx, q, existingID)
}

func getArtifactByIDSEID(ctx context.Context, q querier, idseID string) (*types.Artifact, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, session_id, stage, content, content_hash, idse_id, fingerprint, created_at, updated_at
		FROM artifacts WHERE idse_id = ?
	`, idseID)
	return scanArtifact(row)
}

func getArtifactByID(ctx context.Context, q querier, id int64) (*types.Artifact, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, session_id, stage, content, content_hash, idse_id, fingerprint, created_at, updated_at
		FROM artifacts WHERE id = ?
	`, id)
	return scanArtifact(row)
}

func loadArtifact(ctx context.Context, q querier, projectName, sessionID string, stage types.Stage) (*types.Artifact, error) {
	row := q.QueryRowContext(ctx, `
		SELECT a.id, a.session_id, a.stage, a.content, a.content_hash, a.idse_id, a.fingerprint, a.created_at, a.updated_at
		FROM artifacts a
		JOIN sessions s ON s.id = a.session_id
		JOIN projects p ON p.id = s.project_id
		WHERE p.name = ? AND s.session_id = ? AND a.stage = ?
	`, projectName, sessionID, stage)
	return scanArtifact(row)
}

func listArtifactsBySession(ctx context.Context, q querier, sessionRowID int64) ([]*types.Artifact, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, session_id, stage, content, content_hash, idse_id, fingerprint, created_at, updated_at
		FROM artifacts WHERE session_id = ?
	`, sessionRowID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for session %d: %w", sessionRowID, err)
	}
	defer rows.Close()

	var out []*types.Artifact
	for rows.Next() {
		a := &types.Artifact{}
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Stage, &a.Content, &a.ContentHash, &a.IDSEID, &a.Fingerprint, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanArtifact(row *sql.Row) (*types.Artifact, error) {
	a := &types.Artifact{}
	if err := row.Scan(&a.ID, &a.SessionID, &a.Stage, &a.Content, &a.ContentHash, &a.IDSEID, &a.Fingerprint, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artifact: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("scan artifact: %w", err)
	}
	return a, nil
}

func (s *Store) SaveArtifact(ctx context.Context, sessionRowID int64, projectName, sessionID string, stage types.Stage, content string) (*types.Artifact, error) {
	return saveArtifact(ctx, s.q(), sessionRowID, projectName, sessionID, stage, content)
}
func (s *Store) LoadArtifact(ctx context.Context, projectName, sessionID string, stage types.Stage) (*types.Artifact, error) {
	return loadArtifact(ctx, s.q(), projectName, sessionID, stage)
}
func (s *Store) FindByIDSEID(ctx context.Context, idseID string) (*types.Artifact, error) {
	return getArtifactByIDSEID(ctx, s.q(), idseID)
}
func (s *Store) GetArtifact(ctx context.Context, id int64) (*types.Artifact, error) {
	return getArtifactByID(ctx, s.q(), id)
}
func (s *Store) ListArtifactsBySession(ctx context.Context, sessionRowID int64) ([]*types.Artifact, error) {
	return listArtifactsBySession(ctx, s.q(), sessionRowID)
}

func (t *tx) SaveArtifact(ctx context.Context, sessionRowID int64, projectName, sessionID string, stage types.Stage, content string) (*types.Artifact, error) {
	return saveArtifact(ctx, t.q(), sessionRowID, projectName, sessionID, stage, content)
}

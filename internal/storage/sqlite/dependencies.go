package sqlite

import (
	"context"
	"fmt"

	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/types"
)

func saveDependency(ctx context.Context, q querier, artifactID, dependsOnID int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO artifact_dependencies (artifact_id, depends_on_artifact_id, dependency_type)
		VALUES (?, ?, 'upstream')
		ON CONFLICT(artifact_id, depends_on_artifact_id) DO NOTHING
	`, artifactID, dependsOnID)
	if err != nil {
		return fmt.Errorf("save dependency %d -> %d: %w", artifactID, dependsOnID, err)
	}
	debug.LogEvent(debug.Event{Entity: "artifact_dependency", ID: fmt.Sprintf("%d->%d", artifactID, dependsOnID), Op: "save"})
	return nil
}

func getDependencies(ctx context.Context, q querier, artifactID int64, direction types.Direction) ([]*types.Artifact, error) {
	var query string
	if direction == types.DirectionDownstream {
		query = `
			SELECT a.id, a.session_id, a.stage, a.content, a.content_hash, a.idse_id, a.fingerprint, a.created_at, a.updated_at
			FROM artifacts a
			JOIN artifact_dependencies d ON d.artifact_id = a.id
			WHERE d.depends_on_artifact_id = ?
		`
	} else {
		query = `
			SELECT a.id, a.session_id, a.stage, a.content, a.content_hash, a.idse_id, a.fingerprint, a.created_at, a.updated_at
			FROM artifacts a
			JOIN artifact_dependencies d ON d.depends_on_artifact_id = a.id
			WHERE d.artifact_id = ?
		`
	}
	rows, err := q.QueryContext(ctx, query, artifactID)
	if err != nil {
		return nil, fmt.Errorf("get dependencies: %w", err)
	}
	defer rows.Close()

	var out []*types.Artifact
	for rows.Next() {
		a := &types.Artifact{}
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Stage, &a.Content, &a.ContentHash, &a.IDSEID, &a.Fingerprint, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dependency artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func replaceDependencies(ctx context.Context, q querier, artifactID int64, dependsOnIDs []int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM artifact_dependencies WHERE artifact_id = ?`, artifactID); err != nil {
		return fmt.Errorf("clear dependencies for %d: %w", artifactID, err)
	}
	for _, dep := range dependsOnIDs {
		if err := saveDependency(ctx, q, artifactID, dep); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveDependency(ctx context.Context, artifactID, dependsOnID int64) error {
	return saveDependency(ctx, s.q(), artifactID, dependsOnID)
}
func (s *Store) GetDependencies(ctx context.Context, artifactID int64, direction types.Direction) ([]*types.Artifact, error) {
	return getDependencies(ctx, s.q(), artifactID, direction)
}
func (s *Store) ReplaceDependencies(ctx context.Context, artifactID int64, dependsOnIDs []int64) error {
	return replaceDependencies(ctx, s.q(), artifactID, dependsOnIDs)
}

func (t *tx) SaveDependency(ctx context.Context, artifactID, dependsOnID int64) error {
	return saveDependency(ctx, t.q(), artifactID, dependsOnID)
}

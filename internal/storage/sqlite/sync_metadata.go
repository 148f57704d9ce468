package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/types"
)

func saveSyncMetadata(ctx context.Context, q querier, artifactID int64, backend string, patch storage.SyncMetadataPatch) error {
	existing, err := getSyncMetadata(ctx, q, artifactID, backend)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	if existing == nil {
		existing = &types.SyncMetadata{ArtifactID: artifactID, Backend: backend}
	}

	pushHash, pullHash, remoteID := existing.LastPushHash, existing.LastPullHash, existing.RemoteID
	if patch.PushHash != nil {
		pushHash = *patch.PushHash
	}
	if patch.PullHash != nil {
		pullHash = *patch.PullHash
	}
	if patch.RemoteID != nil {
		remoteID = patch.RemoteID
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO sync_metadata (artifact_id, backend, last_push_hash, last_push_at, last_pull_hash, last_pull_at, remote_id)
		VALUES (?, ?, ?, CASE WHEN ? != '' THEN CURRENT_TIMESTAMP ELSE NULL END, ?, CASE WHEN ? != '' THEN CURRENT_TIMESTAMP ELSE NULL END, ?)
		ON CONFLICT(artifact_id, backend) DO UPDATE SET
			last_push_hash = excluded.last_push_hash,
			last_push_at = CASE WHEN excluded.last_push_hash != sync_metadata.last_push_hash THEN CURRENT_TIMESTAMP ELSE sync_metadata.last_push_at END,
			last_pull_hash = excluded.last_pull_hash,
			last_pull_at = CASE WHEN excluded.last_pull_hash != sync_metadata.last_pull_hash THEN CURRENT_TIMESTAMP ELSE sync_metadata.last_pull_at END,
			remote_id = excluded.remote_id
	`, artifactID, backend, pushHash, pushHash, pullHash, pullHash, remoteID)
	if err != nil {
		return fmt.Errorf("save sync metadata %d/%s: %w", artifactID, backend, err)
	}
	return nil
}

func getSyncMetadata(ctx context.Context, q querier, artifactID int64, backend string) (*types.SyncMetadata, error) {
	row := q.QueryRowContext(ctx, `
		SELECT artifact_id, backend, last_push_hash, last_push_at, last_pull_hash, last_pull_at, remote_id
		FROM sync_metadata WHERE artifact_id = ? AND backend = ?
	`, artifactID, backend)
	m := &types.SyncMetadata{}
	if err := row.Scan(&m.ArtifactID, &m.Backend, &m.LastPushHash, &m.LastPushAt, &m.LastPullHash, &m.LastPullAt, &m.RemoteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sync metadata %d/%s: %w", artifactID, backend, types.ErrNotFound)
		}
		return nil, fmt.Errorf("get sync metadata %d/%s: %w", artifactID, backend, err)
	}
	return m, nil
}

func findArtifactByRemoteID(ctx context.Context, q querier, backend, remoteID string) (*types.Artifact, error) {
	row := q.QueryRowContext(ctx, `
		SELECT a.id, a.session_id, a.stage, a.content, a.content_hash, a.idse_id, a.fingerprint, a.created_at, a.updated_at
		FROM artifacts a
		JOIN sync_metadata m ON m.artifact_id = a.id
		WHERE m.backend = ? AND m.remote_id = ?
	`, backend, remoteID)
	return scanArtifact(row)
}

func (s *Store) SaveSyncMetadata(ctx context.Context, artifactID int64, backend string, patch storage.SyncMetadataPatch) error {
	return saveSyncMetadata(ctx, s.q(), artifactID, backend, patch)
}
func (s *Store) GetSyncMetadata(ctx context.Context, artifactID int64, backend string) (*types.SyncMetadata, error) {
	return getSyncMetadata(ctx, s.q(), artifactID, backend)
}
func (s *Store) FindArtifactByRemoteID(ctx context.Context, backend, remoteID string) (*types.Artifact, error) {
	return findArtifactByRemoteID(ctx, s.q(), backend, remoteID)
}

func (t *tx) SaveSyncMetadata(ctx context.Context, artifactID int64, backend string, patch storage.SyncMetadataPatch) error {
	return saveSyncMetadata(ctx, t.q(), artifactID, backend, patch)
}

// Package storage tests for interface compliance and contract verification.
package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/tjpilant/idse-spine/internal/types"
)

// Compile-time interface conformance checks.
// These verify that a minimal mock can satisfy the interfaces. The sqlite
// backend's conformance is checked at compile time by the
// `var _ storage.Storage = (*Store)(nil)` assertion in sqlite.go.
var (
	_ Storage     = (*mockStorage)(nil)
	_ Transaction = (*mockTransaction)(nil)
)

// mockStorage is a minimal mock for interface testing.
type mockStorage struct{ mockTransaction }

func (m *mockStorage) LoadArtifact(ctx context.Context, projectName, sessionID string, stage types.Stage) (*types.Artifact, error) {
	return nil, nil
}
func (m *mockStorage) FindByIDSEID(ctx context.Context, idseID string) (*types.Artifact, error) {
	return nil, nil
}
func (m *mockStorage) GetArtifact(ctx context.Context, id int64) (*types.Artifact, error) {
	return nil, nil
}
func (m *mockStorage) ListArtifactsBySession(ctx context.Context, sessionRowID int64) ([]*types.Artifact, error) {
	return nil, nil
}
func (m *mockStorage) GetDependencies(ctx context.Context, artifactID int64, direction types.Direction) ([]*types.Artifact, error) {
	return nil, nil
}
func (m *mockStorage) ReplaceDependencies(ctx context.Context, artifactID int64, dependsOnIDs []int64) error {
	return nil
}
func (m *mockStorage) GetSyncMetadata(ctx context.Context, artifactID int64, backend string) (*types.SyncMetadata, error) {
	return nil, nil
}
func (m *mockStorage) FindArtifactByRemoteID(ctx context.Context, backend, remoteID string) (*types.Artifact, error) {
	return nil, nil
}
func (m *mockStorage) GetProject(ctx context.Context, name string) (*types.Project, error) {
	return nil, nil
}
func (m *mockStorage) GetSession(ctx context.Context, projectID int64, sessionID string) (*types.Session, error) {
	return nil, nil
}
func (m *mockStorage) GetSessionByID(ctx context.Context, sessionRowID int64) (*types.Session, error) {
	return nil, nil
}
func (m *mockStorage) ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error) {
	return nil, nil
}
func (m *mockStorage) SetSessionStatus(ctx context.Context, sessionRowID int64, status types.SessionStatus) error {
	return nil
}
func (m *mockStorage) SaveSessionTag(ctx context.Context, sessionRowID int64, key, value string) error {
	return nil
}
func (m *mockStorage) GetSessionTags(ctx context.Context, sessionRowID int64) ([]types.SessionTag, error) {
	return nil, nil
}
func (m *mockStorage) SaveSessionState(ctx context.Context, sessionRowID int64, state types.SessionState) error {
	return nil
}
func (m *mockStorage) GetSessionState(ctx context.Context, sessionRowID int64) (types.SessionState, error) {
	return nil, nil
}
func (m *mockStorage) GetComponent(ctx context.Context, name string) (*types.Component, error) {
	return nil, nil
}
func (m *mockStorage) ListComponents(ctx context.Context) ([]*types.Component, error) {
	return nil, nil
}
func (m *mockStorage) InsertClaim(ctx context.Context, c *types.BlueprintClaim) (*types.BlueprintClaim, error) {
	return nil, nil
}
func (m *mockStorage) UpdateClaimStatus(ctx context.Context, claimID int64, status types.ClaimStatus, supersededBy *int64) error {
	return nil
}
func (m *mockStorage) GetClaim(ctx context.Context, claimID int64) (*types.BlueprintClaim, error) {
	return nil, nil
}
func (m *mockStorage) ListActiveClaims(ctx context.Context, projectID int64) ([]*types.BlueprintClaim, error) {
	return nil, nil
}
func (m *mockStorage) ListAllClaims(ctx context.Context, projectID int64) ([]*types.BlueprintClaim, error) {
	return nil, nil
}
func (m *mockStorage) InsertPromotionRecord(ctx context.Context, r *types.PromotionRecord) (*types.PromotionRecord, error) {
	return nil, nil
}
func (m *mockStorage) ListPromotionRecords(ctx context.Context, projectID int64) ([]*types.PromotionRecord, error) {
	return nil, nil
}
func (m *mockStorage) InsertClaimLifecycleEvent(ctx context.Context, e *types.ClaimLifecycleEvent) (*types.ClaimLifecycleEvent, error) {
	return nil, nil
}
func (m *mockStorage) ListClaimLifecycleEvents(ctx context.Context, claimID int64) ([]*types.ClaimLifecycleEvent, error) {
	return nil, nil
}
func (m *mockStorage) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	return fn(ctx, &m.mockTransaction)
}
func (m *mockStorage) Close() error          { return nil }
func (m *mockStorage) Path() string          { return "" }
func (m *mockStorage) UnderlyingDB() *sql.DB { return nil }

// mockTransaction is a minimal mock for Transaction interface testing.
type mockTransaction struct{}

func (m *mockTransaction) SaveProject(ctx context.Context, name, stack string) (*types.Project, error) {
	return nil, nil
}
func (m *mockTransaction) SaveSession(ctx context.Context, projectID int64, sessionID string, typ types.SessionType, owner string) (*types.Session, error) {
	return nil, nil
}
func (m *mockTransaction) SaveArtifact(ctx context.Context, sessionRowID int64, projectName, sessionID string, stage types.Stage, content string) (*types.Artifact, error) {
	return nil, nil
}
func (m *mockTransaction) SaveDependency(ctx context.Context, artifactID, dependsOnID int64) error {
	return nil
}
func (m *mockTransaction) SaveSyncMetadata(ctx context.Context, artifactID int64, backend string, patch SyncMetadataPatch) error {
	return nil
}
func (m *mockTransaction) SaveComponent(ctx context.Context, c *types.Component) (*types.Component, error) {
	return nil, nil
}

func TestSyncMetadataPatchZeroValueLeavesFieldsNil(t *testing.T) {
	var patch SyncMetadataPatch
	if patch.PushHash != nil || patch.PullHash != nil || patch.RemoteID != nil {
		t.Errorf("zero-value SyncMetadataPatch should have all nil fields, got %+v", patch)
	}
}

// Package storage defines the contract surface of the embedded relational
// store (C1 StorageEngine) and the only component allowed to speak it
// directly, ArtifactRepository (C2). Modeled on the teacher's
// internal/storage/storage.go Storage/Transaction interface pair.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tjpilant/idse-spine/internal/types"
)

// ErrDBNotInitialized is returned when a storage feature is used before Open
// has run, matching the teacher's own sentinel-error convention.
var ErrDBNotInitialized = errors.New("database not initialized")

// Transaction exposes the subset of Storage that runs inside a single
// database transaction, for atomic multi-write workflows (e.g. saving an
// artifact and its dependency edges together).
//
// # Transaction Semantics
//
//   - All operations within the transaction share the same database connection
//   - Changes are not visible to other connections until commit
//   - If any operation returns an error, the transaction is rolled back
//   - If the callback function panics, the transaction is rolled back
//   - On successful return from the callback, the transaction is committed
//
// # SQLite Specifics
//
//   - Uses BEGIN IMMEDIATE to acquire the write lock early, per spec.md §4.1
//     ("a single writer; concurrent readers are permitted")
//   - IMMEDIATE mode serializes concurrent write transactions rather than
//     deadlocking on a late upgrade from a shared read lock
//
// # Example Usage
//
//	err := store.RunInTransaction(ctx, func(ctx context.Context, tx storage.Transaction) error {
//	    artifact, err := tx.SaveArtifact(ctx, sessionRowID, project, sessionID, types.StageIntent, content)
//	    if err != nil {
//	        return err // triggers rollback
//	    }
//	    return tx.SaveDependency(ctx, artifact.ID, upstreamID) // triggers commit on nil
//	})
type Transaction interface {
	SaveProject(ctx context.Context, name, stack string) (*types.Project, error)
	SaveSession(ctx context.Context, projectID int64, sessionID string, typ types.SessionType, owner string) (*types.Session, error)
	SaveArtifact(ctx context.Context, sessionRowID int64, projectName, sessionID string, stage types.Stage, content string) (*types.Artifact, error)
	SaveDependency(ctx context.Context, artifactID, dependsOnID int64) error
	SaveSyncMetadata(ctx context.Context, artifactID int64, backend string, patch SyncMetadataPatch) error
	SaveComponent(ctx context.Context, c *types.Component) (*types.Component, error)
}

// SyncMetadataPatch is a partial update to SyncMetadata; nil fields leave the
// existing column untouched (spec.md §4.2: "partial upsert; missing fields
// preserved").
type SyncMetadataPatch struct {
	PushHash *string
	PullHash *string
	RemoteID *string
}

// Storage is the full ArtifactRepository contract (C2), backed by
// StorageEngine (C1).
type Storage interface {
	Transaction

	LoadArtifact(ctx context.Context, projectName, sessionID string, stage types.Stage) (*types.Artifact, error)
	FindByIDSEID(ctx context.Context, idseID string) (*types.Artifact, error)
	GetArtifact(ctx context.Context, id int64) (*types.Artifact, error)
	ListArtifactsBySession(ctx context.Context, sessionRowID int64) ([]*types.Artifact, error)

	GetDependencies(ctx context.Context, artifactID int64, direction types.Direction) ([]*types.Artifact, error)
	ReplaceDependencies(ctx context.Context, artifactID int64, dependsOnIDs []int64) error

	GetSyncMetadata(ctx context.Context, artifactID int64, backend string) (*types.SyncMetadata, error)
	FindArtifactByRemoteID(ctx context.Context, backend, remoteID string) (*types.Artifact, error)

	GetProject(ctx context.Context, name string) (*types.Project, error)
	GetSession(ctx context.Context, projectID int64, sessionID string) (*types.Session, error)
	GetSessionByID(ctx context.Context, sessionRowID int64) (*types.Session, error)
	ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error)
	SetSessionStatus(ctx context.Context, sessionRowID int64, status types.SessionStatus) error

	SaveSessionTag(ctx context.Context, sessionRowID int64, key, value string) error
	GetSessionTags(ctx context.Context, sessionRowID int64) ([]types.SessionTag, error)

	SaveSessionState(ctx context.Context, sessionRowID int64, state types.SessionState) error
	GetSessionState(ctx context.Context, sessionRowID int64) (types.SessionState, error)

	GetComponent(ctx context.Context, name string) (*types.Component, error)
	ListComponents(ctx context.Context) ([]*types.Component, error)

	// Claim operations are raw row access; ClaimLifecycle is the only
	// caller permitted to invoke the mutating ones (InsertClaim,
	// UpdateClaimStatus, the record/event inserts) directly (spec.md §3:
	// "raw row mutation outside that component is forbidden"). Projection
	// and the CLI only read claims.
	InsertClaim(ctx context.Context, c *types.BlueprintClaim) (*types.BlueprintClaim, error)
	UpdateClaimStatus(ctx context.Context, claimID int64, status types.ClaimStatus, supersededBy *int64) error
	GetClaim(ctx context.Context, claimID int64) (*types.BlueprintClaim, error)
	ListActiveClaims(ctx context.Context, projectID int64) ([]*types.BlueprintClaim, error)
	ListAllClaims(ctx context.Context, projectID int64) ([]*types.BlueprintClaim, error)
	InsertPromotionRecord(ctx context.Context, r *types.PromotionRecord) (*types.PromotionRecord, error)
	ListPromotionRecords(ctx context.Context, projectID int64) ([]*types.PromotionRecord, error)
	InsertClaimLifecycleEvent(ctx context.Context, e *types.ClaimLifecycleEvent) (*types.ClaimLifecycleEvent, error)
	ListClaimLifecycleEvents(ctx context.Context, claimID int64) ([]*types.ClaimLifecycleEvent, error)

	// RunInTransaction executes fn within a single database transaction.
	//
	// Transaction behavior:
	//   - If fn returns nil, the transaction is committed
	//   - If fn returns an error, the transaction is rolled back
	//   - If fn panics, the transaction is rolled back and the panic re-raised
	//   - A nested call, where fn invokes RunInTransaction again using the
	//     ctx it was handed, reuses the outermost transaction instead of
	//     opening a second one (spec.md §4.1)
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error

	// Lifecycle
	Close() error

	// Path returns the backing database file path.
	Path() string

	// UnderlyingDB returns the underlying *sql.DB connection. Provided for
	// callers that need to run ad hoc diagnostics; bypasses the storage
	// layer's invariants, so prefer the typed methods above.
	UnderlyingDB() *sql.DB
}

// Config holds embedded-store configuration (spec.md §6: storage_backend).
type Config struct {
	Path string
}

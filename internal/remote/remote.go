// Package remote implements RemoteProjector (C6): a hash-gated, idempotent
// push/pull sync loop against a generic remote capability, and SchemaMap
// (C7): the field mapping that turns a local artifact into a remote
// payload. The capability interface and retry/backoff idiom are grounded on
// the teacher's internal/linear.Client.Execute (exponential backoff on
// rate-limit) generalized from one concrete provider to any adapter that
// implements Capability.
package remote

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/fingerprint"
	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/types"
)

// ErrRemoteNotFound is returned by a Capability implementation when a
// remote_id no longer resolves to a row (deleted out of band).
var ErrRemoteNotFound = errors.New("remote record not found")

// Record is the wire shape RemoteProjector exchanges with a Capability: a
// flat property bag plus the remote's own identifier, independent of any
// one provider's schema.
type Record struct {
	RemoteID   string
	Properties map[string]any
}

// Capability is the minimal surface a remote backend adapter must
// implement. Method names mirror spec.md §5's generic verbs (query, create,
// update, fetch) rather than a specific vendor's API, so SchemaMap and the
// push/pull algorithm below never depend on a concrete provider.
type Capability interface {
	Query(ctx context.Context, filter map[string]any) ([]Record, error)
	Create(ctx context.Context, properties map[string]any) (Record, error)
	Update(ctx context.Context, remoteID string, properties map[string]any) error
	Fetch(ctx context.Context, remoteID string) (Record, error)
}

// defaultConcurrency bounds how many artifacts a single push/pull batch
// projects at once (spec.md §5.3: "bounded concurrency, default 4").
const defaultConcurrency = 4

// Projector is the RemoteProjector component.
type Projector struct {
	store      storage.Storage
	cap        Capability
	backend    string
	schema     *SchemaMap
	maxInFlight int64
}

// Option configures a Projector.
type Option func(*Projector)

// WithConcurrency overrides the default bounded-concurrency limit.
func WithConcurrency(n int64) Option {
	return func(p *Projector) { p.maxInFlight = n }
}

// New builds a Projector for backend (the sync_backend config selector)
// against cap, using schema to map artifact fields to remote properties.
func New(store storage.Storage, backend string, cap Capability, schema *SchemaMap, opts ...Option) *Projector {
	p := &Projector{store: store, cap: cap, backend: backend, schema: schema, maxInFlight: defaultConcurrency}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PushResult records the outcome of pushing one artifact, so a batch push
// can report partial failure without losing progress on the rest (spec.md
// §5.3: "failure-isolated batches").
type PushResult struct {
	ArtifactID int64
	Skipped    bool
	Err        error
}

// Push projects every given artifact to the remote, skipping any whose sync
// metadata shows its content hash already matches the last successful push
// (types.SyncMetadata.Skippable), and isolating failures so one artifact's
// error doesn't abort the batch.
func (p *Projector) Push(ctx context.Context, artifactIDs []int64) []PushResult {
	sem := semaphore.NewWeighted(p.maxInFlight)
	results := make([]PushResult, len(artifactIDs))

	done := make(chan struct{}, len(artifactIDs))
	for i, id := range artifactIDs {
		i, id := i, id
		go func() {
			defer func() { done <- struct{}{} }()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = PushResult{ArtifactID: id, Err: err}
				return
			}
			defer sem.Release(1)
			results[i] = p.pushOne(ctx, id)
		}()
	}
	for range artifactIDs {
		<-done
	}
	return results
}

func (p *Projector) pushOne(ctx context.Context, artifactID int64) PushResult {
	artifact, err := p.store.GetArtifact(ctx, artifactID)
	if err != nil {
		return PushResult{ArtifactID: artifactID, Err: fmt.Errorf("push: load artifact: %w", err)}
	}

	meta, err := p.store.GetSyncMetadata(ctx, artifactID, p.backend)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return PushResult{ArtifactID: artifactID, Err: fmt.Errorf("push: load sync metadata: %w", err)}
	}
	if meta.Skippable(artifact.ContentHash) {
		return PushResult{ArtifactID: artifactID, Skipped: true}
	}

	sess, err := p.store.GetSessionByID(ctx, artifact.SessionID)
	if err != nil {
		return PushResult{ArtifactID: artifactID, Err: fmt.Errorf("push: load session: %w", err)}
	}

	// Resolve remote_id: primary is the cached value; fallback (first sync
	// only, i.e. no remote_id cached yet) is one query by the artifact's
	// (session, stage) anchor, per spec.md §4.6 push step 3.
	var remoteID string
	if meta != nil && meta.RemoteID != nil {
		remoteID = *meta.RemoteID
	} else {
		recs, err := p.cap.Query(ctx, p.schema.AnchorFilter(artifact))
		if err != nil {
			return PushResult{ArtifactID: artifactID, Err: fmt.Errorf("push: query anchor: %w", err)}
		}
		if len(recs) > 0 {
			remoteID = recs[0].RemoteID
		}
	}

	properties := p.schema.ToRemoteProperties(artifact, sess, remoteID == "")

	if remoteID != "" {
		if err := p.cap.Update(ctx, remoteID, properties); err != nil {
			if errors.Is(err, ErrRemoteNotFound) {
				// The remote row was deleted out of band: clear remote_id
				// and retry as a create, per spec.md §5.4's stated default.
				remoteID = ""
				properties = p.schema.ToRemoteProperties(artifact, sess, true)
			} else {
				return PushResult{ArtifactID: artifactID, Err: fmt.Errorf("push: update: %w", err)}
			}
		}
	}

	if remoteID == "" {
		rec, err := p.cap.Create(ctx, properties)
		if err != nil {
			return PushResult{ArtifactID: artifactID, Err: fmt.Errorf("push: create: %w", err)}
		}
		remoteID = rec.RemoteID
	}

	patch := storage.SyncMetadataPatch{PushHash: &artifact.ContentHash, RemoteID: &remoteID}
	if err := p.store.SaveSyncMetadata(ctx, artifactID, p.backend, patch); err != nil {
		return PushResult{ArtifactID: artifactID, Err: fmt.Errorf("push: save sync metadata: %w", err)}
	}

	debug.LogEvent(debug.Event{Entity: "artifact", ID: artifactID, Op: "push:" + p.backend})
	return PushResult{ArtifactID: artifactID}
}

// PullResult records the outcome of pulling one remote record.
type PullResult struct {
	RemoteID string
	Created  bool
	Updated  bool
	Err      error
}

// Pull fetches every given remote record and upserts a matching local
// artifact, hash-gating so an unchanged remote record issues no local
// write.
func (p *Projector) Pull(ctx context.Context, sessionRowID int64, projectName, sessionID string, stage types.Stage, remoteIDs []string) []PullResult {
	sem := semaphore.NewWeighted(p.maxInFlight)
	results := make([]PullResult, len(remoteIDs))

	done := make(chan struct{}, len(remoteIDs))
	for i, remoteID := range remoteIDs {
		i, remoteID := i, remoteID
		go func() {
			defer func() { done <- struct{}{} }()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = PullResult{RemoteID: remoteID, Err: err}
				return
			}
			defer sem.Release(1)
			results[i] = p.pullOne(ctx, sessionRowID, projectName, sessionID, stage, remoteID)
		}()
	}
	for range remoteIDs {
		<-done
	}
	return results
}

func (p *Projector) pullOne(ctx context.Context, sessionRowID int64, projectName, sessionID string, stage types.Stage, remoteID string) PullResult {
	rec, err := p.cap.Fetch(ctx, remoteID)
	if err != nil {
		// A record deleted out of band surfaces here as ErrRemoteNotFound and
		// is reported for this remote id; the rest of the batch continues.
		return PullResult{RemoteID: remoteID, Err: fmt.Errorf("pull: fetch: %w", err)}
	}

	content := p.schema.FromRemoteProperties(rec.Properties)

	existing, err := p.store.FindArtifactByRemoteID(ctx, p.backend, remoteID)
	created := err != nil
	if existing != nil && existing.ContentHash == fingerprint.ContentHash(content) {
		return PullResult{RemoteID: remoteID} // no-op: already at this content
	}
	artifact, err := p.store.SaveArtifact(ctx, sessionRowID, projectName, sessionID, stage, content)
	if err != nil {
		return PullResult{RemoteID: remoteID, Err: fmt.Errorf("pull: save artifact: %w", err)}
	}

	// Translate relation properties to local artifact IDs via reverse
	// lookup on SyncMetadata.remote_id, then replace the local dependency
	// set wholesale (delete-then-insert, spec.md §4.6 pull step 3).
	if remoteIDs := p.schema.RelationRemoteIDs(rec.Properties); remoteIDs != nil {
		dependsOnIDs := make([]int64, 0, len(remoteIDs))
		for _, upstreamRemoteID := range remoteIDs {
			related, err := p.store.FindArtifactByRemoteID(ctx, p.backend, upstreamRemoteID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					continue // not yet pulled locally: skip, a later pull resolves it
				}
				return PullResult{RemoteID: remoteID, Err: fmt.Errorf("pull: resolve relation %s: %w", upstreamRemoteID, err)}
			}
			dependsOnIDs = append(dependsOnIDs, related.ID)
		}
		if err := p.store.ReplaceDependencies(ctx, artifact.ID, dependsOnIDs); err != nil {
			return PullResult{RemoteID: remoteID, Err: fmt.Errorf("pull: replace dependencies: %w", err)}
		}
	}

	patch := storage.SyncMetadataPatch{PullHash: &artifact.ContentHash, RemoteID: &remoteID}
	if err := p.store.SaveSyncMetadata(ctx, artifact.ID, p.backend, patch); err != nil {
		return PullResult{RemoteID: remoteID, Err: fmt.Errorf("pull: save sync metadata: %w", err)}
	}

	debug.LogEvent(debug.Event{Entity: "artifact", ID: artifact.ID, Op: "pull:" + p.backend})
	return PullResult{RemoteID: remoteID, Created: created, Updated: !created}
}


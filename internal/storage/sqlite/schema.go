package sqlite

const schema = `
-- Projects are the root of a workspace tree.
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    stack TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Sessions group a pipeline of stage artifacts. Exactly one session per
-- project carries session_id = '__blueprint__' and type = 'blueprint'.
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    session_id TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'feature' CHECK(type IN ('blueprint', 'feature')),
    status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN ('draft', 'in_progress', 'review', 'complete', 'archived', 'superseded')),
    owner TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(project_id, session_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);

-- Artifacts are the content-addressed, stage-typed documents a session
-- produces. idse_id is a globally addressable identifier independent of the
-- owning session's row id.
CREATE TABLE IF NOT EXISTS artifacts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    idse_id TEXT NOT NULL UNIQUE,
    stage TEXT NOT NULL CHECK(stage IN ('intent', 'context', 'spec', 'plan', 'tasks', 'implementation', 'feedback', 'metadata')),
    content TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(session_id, stage)
);

CREATE INDEX IF NOT EXISTS idx_artifacts_session ON artifacts(session_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_content_hash ON artifacts(content_hash);
CREATE INDEX IF NOT EXISTS idx_artifacts_fingerprint ON artifacts(fingerprint);

-- Artifact dependencies are directed upstream edges.
CREATE TABLE IF NOT EXISTS artifact_dependencies (
    artifact_id INTEGER NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    depends_on_artifact_id INTEGER NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    dependency_type TEXT NOT NULL DEFAULT 'upstream',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (artifact_id, depends_on_artifact_id)
);

CREATE INDEX IF NOT EXISTS idx_artifact_deps_depends_on ON artifact_dependencies(depends_on_artifact_id);

-- Sync metadata is per-artifact, per-backend remote push/pull bookkeeping.
CREATE TABLE IF NOT EXISTS sync_metadata (
    artifact_id INTEGER NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    backend TEXT NOT NULL,
    last_push_hash TEXT NOT NULL DEFAULT '',
    last_push_at DATETIME,
    last_pull_hash TEXT NOT NULL DEFAULT '',
    last_pull_at DATETIME,
    remote_id TEXT,
    PRIMARY KEY (artifact_id, backend)
);

CREATE INDEX IF NOT EXISTS idx_sync_metadata_remote_id ON sync_metadata(backend, remote_id);

-- Session tags are unordered key/value pairs.
CREATE TABLE IF NOT EXISTS session_tags (
    session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (session_id, key)
);

-- Session state is the per-stage validation snapshot, stored as a single
-- JSON blob (spec.md §4.2's SessionState map keyed by stage).
CREATE TABLE IF NOT EXISTS session_state (
    session_id INTEGER PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
    state_json TEXT NOT NULL DEFAULT '{}',
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Components are parsed units from implementation artifacts, enforcing the
-- artifact -> component -> primitive chain (spec.md §4.4).
CREATE TABLE IF NOT EXISTS components (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL CHECK(type IN ('projection', 'operation', 'infrastructure', 'routing', 'artifact')),
    source_file TEXT NOT NULL DEFAULT '',
    parent_primitives TEXT NOT NULL DEFAULT '[]',
    last_seen_in_session TEXT NOT NULL DEFAULT '',
    last_updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Blueprint claims are constitutional statements with a dual declared/
-- converged entry path (spec.md §3).
CREATE TABLE IF NOT EXISTS blueprint_claims (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    classification TEXT NOT NULL CHECK(classification IN ('invariant', 'boundary', 'ownership_rule', 'non_negotiable_constraint')),
    claim_text TEXT NOT NULL,
    origin TEXT NOT NULL CHECK(origin IN ('declared', 'converged')),
    status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'superseded', 'invalidated')),
    promotion_record_id INTEGER REFERENCES promotion_records(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    superseded_by INTEGER REFERENCES blueprint_claims(id)
);

CREATE INDEX IF NOT EXISTS idx_claims_project_status ON blueprint_claims(project_id, status);

-- Promotion records are an append-only ledger of gate evaluations, whether
-- allowed or denied (spec.md §4.3.2: "every evaluation is recorded, not just
-- successful promotions").
CREATE TABLE IF NOT EXISTS promotion_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    candidate_claim_text TEXT NOT NULL,
    classification TEXT NOT NULL DEFAULT '',
    evidence_hash TEXT NOT NULL DEFAULT '',
    source_sessions TEXT NOT NULL DEFAULT '[]',
    source_stages TEXT NOT NULL DEFAULT '[]',
    feedback_artifacts TEXT NOT NULL DEFAULT '[]',
    decision TEXT NOT NULL CHECK(decision IN ('allow', 'deny')),
    reasons TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_promotion_records_project ON promotion_records(project_id);

-- Claim lifecycle events are an append-only transition log per claim.
CREATE TABLE IF NOT EXISTS claim_lifecycle_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    claim_id INTEGER NOT NULL REFERENCES blueprint_claims(id) ON DELETE CASCADE,
    old_status TEXT NOT NULL DEFAULT '',
    new_status TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    actor TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_claim_events_claim ON claim_lifecycle_events(claim_id);

-- Config is a flat key/value table for project-scoped runtime overrides.
-- No code reads or writes it yet; overrides come from config.yaml only.
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Metadata is a flat key/value table for internal bookkeeping not exposed
-- through config. No code reads or writes it.
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/types"
)

func saveSession(ctx context.Context, q querier, projectID int64, sessionID string, typ types.SessionType, owner string) (*types.Session, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sessions (project_id, session_id, type, owner) VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, session_id) DO UPDATE SET owner = excluded.owner
	`, projectID, sessionID, typ, owner)
	if err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	debug.LogEvent(debug.Event{Entity: "session", ID: sessionID, Op: "save", Actor: owner})
	return getSession(ctx, q, projectID, sessionID)
}

func getSession(ctx context.Context, q querier, projectID int64, sessionID string) (*types.Session, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, session_id, type, status, owner, created_at
		FROM sessions WHERE project_id = ? AND session_id = ?
	`, projectID, sessionID)
	sess := &types.Session{}
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.SessionID, &sess.Type, &sess.Status, &sess.Owner, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return sess, nil
}

func getSessionByID(ctx context.Context, q querier, sessionRowID int64) (*types.Session, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, project_id, session_id, type, status, owner, created_at
		FROM sessions WHERE id = ?
	`, sessionRowID)
	sess := &types.Session{}
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.SessionID, &sess.Type, &sess.Status, &sess.Owner, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session row %d: %w", sessionRowID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("get session row %d: %w", sessionRowID, err)
	}
	return sess, nil
}

func listSessions(ctx context.Context, q querier, projectID int64) ([]*types.Session, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, session_id, type, status, owner, created_at
		FROM sessions WHERE project_id = ? ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*types.Session
	for rows.Next() {
		sess := &types.Session{}
		if err := rows.Scan(&sess.ID, &sess.ProjectID, &sess.SessionID, &sess.Type, &sess.Status, &sess.Owner, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func setSessionStatus(ctx context.Context, q querier, sessionRowID int64, status types.SessionStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, status, sessionRowID)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session row %d: %w", sessionRowID, types.ErrNotFound)
	}
	debug.LogEvent(debug.Event{Entity: "session", ID: sessionRowID, Op: "status:" + string(status)})
	return nil
}

func saveSessionTag(ctx context.Context, q querier, sessionRowID int64, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO session_tags (session_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value
	`, sessionRowID, key, value)
	if err != nil {
		return fmt.Errorf("save session tag %s: %w", key, err)
	}
	return nil
}

func getSessionTags(ctx context.Context, q querier, sessionRowID int64) ([]types.SessionTag, error) {
	rows, err := q.QueryContext(ctx, `SELECT session_id, key, value FROM session_tags WHERE session_id = ?`, sessionRowID)
	if err != nil {
		return nil, fmt.Errorf("get session tags: %w", err)
	}
	defer rows.Close()

	var out []types.SessionTag
	for rows.Next() {
		var t types.SessionTag
		if err := rows.Scan(&t.SessionID, &t.Key, &t.Value); err != nil {
			return nil, fmt.Errorf("scan session tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func saveSessionState(ctx context.Context, q querier, sessionRowID int64, state types.SessionState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO session_state (session_id, state_json, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET state_json = excluded.state_json, updated_at = CURRENT_TIMESTAMP
	`, sessionRowID, string(blob))
	if err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

func getSessionState(ctx context.Context, q querier, sessionRowID int64) (types.SessionState, error) {
	row := q.QueryRowContext(ctx, `SELECT state_json FROM session_state WHERE session_id = ?`, sessionRowID)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.SessionState{}, nil
		}
		return nil, fmt.Errorf("get session state: %w", err)
	}
	var state types.SessionState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return state, nil
}

func (s *Store) SaveSession(ctx context.Context, projectID int64, sessionID string, typ types.SessionType, owner string) (*types.Session, error) {
	return saveSession(ctx, s.q(), projectID, sessionID, typ, owner)
}
func (s *Store) GetSession(ctx context.Context, projectID int64, sessionID string) (*types.Session, error) {
	return getSession(ctx, s.q(), projectID, sessionID)
}
func (s *Store) GetSessionByID(ctx context.Context, sessionRowID int64) (*types.Session, error) {
	return getSessionByID(ctx, s.q(), sessionRowID)
}
func (s *Store) ListSessions(ctx context.Context, projectID int64) ([]*types.Session, error) {
	return listSessions(ctx, s.q(), projectID)
}
func (s *Store) SetSessionStatus(ctx context.Context, sessionRowID int64, status types.SessionStatus) error {
	return setSessionStatus(ctx, s.q(), sessionRowID, status)
}
func (s *Store) SaveSessionTag(ctx context.Context, sessionRowID int64, key, value string) error {
	return saveSessionTag(ctx, s.q(), sessionRowID, key, value)
}
func (s *Store) GetSessionTags(ctx context.Context, sessionRowID int64) ([]types.SessionTag, error) {
	return getSessionTags(ctx, s.q(), sessionRowID)
}
func (s *Store) SaveSessionState(ctx context.Context, sessionRowID int64, state types.SessionState) error {
	return saveSessionState(ctx, s.q(), sessionRowID, state)
}
func (s *Store) GetSessionState(ctx context.Context, sessionRowID int64) (types.SessionState, error) {
	return getSessionState(ctx, s.q(), sessionRowID)
}

func (t *tx) SaveSession(ctx context.Context, projectID int64, sessionID string, typ types.SessionType, owner string) (*types.Session, error) {
	return saveSession(ctx, t.q(), projectID, sessionID, typ, owner)
}

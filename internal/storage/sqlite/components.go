package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tjpilant/idse-spine/internal/types"
)

func saveComponent(ctx context.Context, q querier, c *types.Component) (*types.Component, error) {
	primitives, err := json.Marshal(c.ParentPrimitives)
	if err != nil {
		return nil, fmt.Errorf("marshal parent primitives: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO components (name, type, source_file, parent_primitives, last_seen_in_session)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			type = excluded.type,
			source_file = excluded.source_file,
			parent_primitives = excluded.parent_primitives,
			last_seen_in_session = excluded.last_seen_in_session,
			last_updated_at = CURRENT_TIMESTAMP
	`, c.Name, c.Type, c.SourceFile, string(primitives), c.LastSeenInSession)
	if err != nil {
		return nil, fmt.Errorf("save component %s: %w", c.Name, err)
	}
	return getComponent(ctx, q, c.Name)
}

func getComponent(ctx context.Context, q querier, name string) (*types.Component, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, type, source_file, parent_primitives, last_seen_in_session, last_updated_at
		FROM components WHERE name = ?
	`, name)
	return scanComponent(row)
}

func scanComponent(row *sql.Row) (*types.Component, error) {
	c := &types.Component{}
	var primitives string
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.SourceFile, &primitives, &c.LastSeenInSession, &c.LastUpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("component: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("scan component: %w", err)
	}
	if err := json.Unmarshal([]byte(primitives), &c.ParentPrimitives); err != nil {
		return nil, fmt.Errorf("unmarshal parent primitives: %w", err)
	}
	return c, nil
}

func listComponents(ctx context.Context, q querier) ([]*types.Component, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, type, source_file, parent_primitives, last_seen_in_session, last_updated_at
		FROM components ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	defer rows.Close()

	var out []*types.Component
	for rows.Next() {
		c := &types.Component{}
		var primitives string
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.SourceFile, &primitives, &c.LastSeenInSession, &c.LastUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		if err := json.Unmarshal([]byte(primitives), &c.ParentPrimitives); err != nil {
			return nil, fmt.Errorf("unmarshal parent primitives: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SaveComponent(ctx context.Context, c *types.Component) (*types.Component, error) {
	return saveComponent(ctx, s.q(), c)
}
func (s *Store) GetComponent(ctx context.Context, name string) (*types.Component, error) {
	return getComponent(ctx, s.q(), name)
}
func (s *Store) ListComponents(ctx context.Context) ([]*types.Component, error) {
	return listComponents(ctx, s.q())
}

func (t *tx) SaveComponent(ctx context.Context, c *types.Component) (*types.Component, error) {
	return saveComponent(ctx, t.q(), c)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/types"
)

func saveProject(ctx context.Context, q querier, name, stack string) (*types.Project, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (name, stack) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET stack = excluded.stack
	`, name, stack)
	if err != nil {
		return nil, fmt.Errorf("save project %s: %w", name, err)
	}
	debug.LogEvent(debug.Event{Entity: "project", ID: name, Op: "save"})
	return getProject(ctx, q, name)
}

func getProject(ctx context.Context, q querier, name string) (*types.Project, error) {
	row := q.QueryRowContext(ctx, `SELECT id, name, stack, created_at FROM projects WHERE name = ?`, name)
	p := &types.Project{}
	if err := row.Scan(&p.ID, &p.Name, &p.Stack, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", name, types.ErrNotFound)
		}
		return nil, fmt.Errorf("get project %s: %w", name, err)
	}
	return p, nil
}

func (s *Store) SaveProject(ctx context.Context, name, stack string) (*types.Project, error) {
	return saveProject(ctx, s.q(), name, stack)
}

func (s *Store) GetProject(ctx context.Context, name string) (*types.Project, error) {
	return getProject(ctx, s.q(), name)
}

func (t *tx) SaveProject(ctx context.Context, name, stack string) (*types.Project, error) {
	return saveProject(ctx, t.q(), name, stack)
}

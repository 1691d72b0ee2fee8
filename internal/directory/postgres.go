package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// Postgres resolves handles from the arena_users table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Resolve(ctx context.Context, handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", ErrUnknownHandle
	}

	const query = `SELECT user_id FROM arena_users WHERE handle = $1`

	var id string
	err := p.db.QueryRowContext(ctx, query, handle).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownHandle
	}
	if err != nil {
		return "", fmt.Errorf("resolve handle: %w", err)
	}
	return id, nil
}

var _ Resolver = (*Postgres)(nil)

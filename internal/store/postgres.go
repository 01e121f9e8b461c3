package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlinks/internal/accounts"
	"github.com/serroba/shortlinks/internal/errx"
	"github.com/serroba/shortlinks/internal/links"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// schema keeps insertion order through the seq columns.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	seq           BIGSERIAL UNIQUE,
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS links (
	seq        BIGSERIAL UNIQUE,
	id         TEXT PRIMARY KEY,
	long_url   TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users (id),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS links_owner_seq_idx ON links (owner_id, seq);

CREATE TABLE IF NOT EXISTS link_visits (
	link_id    TEXT NOT NULL REFERENCES links (id) ON DELETE CASCADE,
	visitor_id TEXT NOT NULL,
	count      BIGINT NOT NULL CHECK (count > 0),
	PRIMARY KEY (link_id, visitor_id)
);
`

// EnsureSchema creates the tables used by the postgres stores when they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	return nil
}

func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}

	return "", ""
}

// PostgresUserStore is a PostgreSQL implementation of accounts.Repository.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a PostgreSQL-backed user store.
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (p *PostgresUserStore) Insert(ctx context.Context, user *accounts.User) error {
	const op = "store.InsertUser"

	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if code, constraint := pgErrorCode(err); code == pgUniqueViolation {
			if constraint == "users_email_key" {
				return errx.E(op, errx.Conflict, accounts.ErrEmailTaken)
			}

			return errx.E(op, errx.Conflict, accounts.ErrIDTaken)
		}

		return errx.E(op, errx.Internal, err)
	}

	return nil
}

func (p *PostgresUserStore) GetByID(ctx context.Context, id string) (*accounts.User, error) {
	return p.queryUser(ctx, "store.GetUser",
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (p *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return p.queryUser(ctx, "store.FindUserByEmail",
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1 ORDER BY seq LIMIT 1`, email)
}

func (p *PostgresUserStore) queryUser(ctx context.Context, op, query string, arg string) (*accounts.User, error) {
	var user accounts.User

	err := p.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errx.E(op, errx.NotFound, accounts.ErrNotFound)
		}

		return nil, errx.E(op, errx.Internal, err)
	}

	return &user, nil
}

func (p *PostgresUserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, errx.E("store.CountUsers", errx.Internal, err)
	}

	return n, nil
}

// PostgresLinkStore is a PostgreSQL implementation of links.Repository.
type PostgresLinkStore struct {
	pool *pgxpool.Pool
}

// NewPostgresLinkStore creates a PostgreSQL-backed link store.
func NewPostgresLinkStore(pool *pgxpool.Pool) *PostgresLinkStore {
	return &PostgresLinkStore{pool: pool}
}

func (p *PostgresLinkStore) Insert(ctx context.Context, link *links.Link) error {
	const op = "store.InsertLink"

	_, err := p.pool.Exec(ctx,
		`INSERT INTO links (id, long_url, owner_id, created_at) VALUES ($1, $2, $3, $4)`,
		link.ID, link.LongURL, link.OwnerID, link.CreatedAt,
	)
	if err != nil {
		switch code, _ := pgErrorCode(err); code {
		case pgUniqueViolation:
			return errx.E(op, errx.Conflict, links.ErrIDTaken)
		case pgForeignKeyViolation:
			return errx.E(op, errx.Unauthenticated, links.ErrUnknownOwner)
		}

		return errx.E(op, errx.Internal, err)
	}

	return nil
}

func (p *PostgresLinkStore) Get(ctx context.Context, id string) (*links.Link, error) {
	const op = "store.GetLink"

	link := &links.Link{Visits: make(map[string]int64)}

	err := p.pool.QueryRow(ctx,
		`SELECT id, long_url, owner_id, created_at FROM links WHERE id = $1`, id,
	).Scan(&link.ID, &link.LongURL, &link.OwnerID, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errx.E(op, errx.NotFound, links.ErrNotFound)
		}

		return nil, errx.E(op, errx.Internal, err)
	}

	if err := p.loadVisits(ctx, map[string]*links.Link{link.ID: link}); err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}

	return link, nil
}

func (p *PostgresLinkStore) UpdateLongURL(ctx context.Context, id, longURL string) error {
	const op = "store.UpdateLink"

	tag, err := p.pool.Exec(ctx, `UPDATE links SET long_url = $2 WHERE id = $1`, id, longURL)
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}

	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, links.ErrNotFound)
	}

	return nil
}

func (p *PostgresLinkStore) Delete(ctx context.Context, id string) error {
	const op = "store.DeleteLink"

	tag, err := p.pool.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return errx.E(op, errx.Internal, err)
	}

	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, links.ErrNotFound)
	}

	return nil
}

func (p *PostgresLinkStore) ListByOwner(ctx context.Context, ownerID string) ([]*links.Link, error) {
	const op = "store.ListLinks"

	rows, err := p.pool.Query(ctx,
		`SELECT id, long_url, owner_id, created_at FROM links WHERE owner_id = $1 ORDER BY seq`, ownerID)
	if err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*links.Link, error) {
		link := &links.Link{Visits: make(map[string]int64)}
		err := row.Scan(&link.ID, &link.LongURL, &link.OwnerID, &link.CreatedAt)

		return link, err
	})
	if err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}

	byID := make(map[string]*links.Link, len(result))
	for _, link := range result {
		byID[link.ID] = link
	}

	if err := p.loadVisits(ctx, byID); err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}

	return result, nil
}

func (p *PostgresLinkStore) loadVisits(ctx context.Context, byID map[string]*links.Link) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT link_id, visitor_id, count FROM link_visits WHERE link_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			linkID, visitorID string
			count             int64
		)

		if err := rows.Scan(&linkID, &visitorID, &count); err != nil {
			return err
		}

		byID[linkID].Visits[visitorID] = count
	}

	return rows.Err()
}

func (p *PostgresLinkStore) RecordVisit(ctx context.Context, id, visitorID string) error {
	const op = "store.RecordVisit"

	_, err := p.pool.Exec(ctx, `
		INSERT INTO link_visits (link_id, visitor_id, count) VALUES ($1, $2, 1)
		ON CONFLICT (link_id, visitor_id) DO UPDATE SET count = link_visits.count + 1`,
		id, visitorID,
	)
	if err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
			return errx.E(op, errx.NotFound, links.ErrNotFound)
		}

		return errx.E(op, errx.Internal, err)
	}

	return nil
}

func (p *PostgresLinkStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM links`).Scan(&n); err != nil {
		return 0, errx.E("store.CountLinks", errx.Internal, err)
	}

	return n, nil
}

var (
	_ accounts.Repository = (*PostgresUserStore)(nil)
	_ links.Repository    = (*PostgresLinkStore)(nil)
)

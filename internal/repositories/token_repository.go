package repositories

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/poofware/apikey-service/internal/models"
)

// DB is the subset of pgxpool.Pool the repositories need.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Sort columns accepted by ListByOwner. Anything else falls back to
// creation time.
const (
	OrderByCreatedAt = "created_at"
	OrderByExpiresAt = "expires_at"
)

// TokenRepository manages apikey_tokens rows. Rows are insert-then-delete
// only; there is deliberately no update method.
type TokenRepository interface {
	// Create stores a newly issued token and fills in the generated ID
	// and server-side creation timestamp.
	Create(ctx context.Context, token *models.ApiKeyToken) error

	// GetByID fetches a token row by id. Returns nil, nil if not found.
	GetByID(ctx context.Context, id int64) (*models.ApiKeyToken, error)

	// ListByOwner returns every token owned by ownerID. This is the single
	// ownership-scoping point for list reads: a non-positive ownerID means
	// no authenticated caller, and yields an empty result set without
	// touching the database.
	ListByOwner(ctx context.Context, ownerID int64, orderBy string, descending bool) ([]*models.ApiKeyToken, error)

	// Delete removes a token row and reports whether a row existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// DeleteExpired removes every row whose expiry has passed and returns
	// the number of rows swept.
	DeleteExpired(ctx context.Context) (int64, error)
}

type tokenRepository struct {
	db DB
}

func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.ApiKeyToken) error {
	query := `
        INSERT INTO apikey_tokens (user_id, token, created_at, expires_at)
        VALUES ($1, $2, NOW(), $3)
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *tokenRepository) GetByID(ctx context.Context, id int64) (*models.ApiKeyToken, error) {
	query := `
        SELECT id, user_id, token, created_at, expires_at
        FROM apikey_tokens
        WHERE id = $1
    `
	row := r.db.QueryRow(ctx, query, id)

	var t models.ApiKeyToken
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.CreatedAt,
		&t.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) ListByOwner(ctx context.Context, ownerID int64, orderBy string, descending bool) ([]*models.ApiKeyToken, error) {
	// Fail closed: no authenticated owner means no visible rows, never all.
	if ownerID <= 0 {
		return []*models.ApiKeyToken{}, nil
	}

	column := OrderByCreatedAt
	if orderBy == OrderByExpiresAt {
		column = OrderByExpiresAt
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	// column and direction are both restricted to fixed identifiers above.
	query := `
        SELECT id, user_id, token, created_at, expires_at
        FROM apikey_tokens
        WHERE user_id = $1
        ORDER BY ` + column + ` ` + direction

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []*models.ApiKeyToken{}
	for rows.Next() {
		var t models.ApiKeyToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *tokenRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM apikey_tokens WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM apikey_tokens WHERE expires_at < NOW()`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

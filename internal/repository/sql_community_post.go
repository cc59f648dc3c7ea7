package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQLCommunityPostRepo implements CommunityPostRepo. The engine only needs
// post counts; the feed itself lives elsewhere.
type SQLCommunityPostRepo struct {
	db db.DBTX
}

func NewSQLCommunityPostRepo(conn db.DBTX) *SQLCommunityPostRepo {
	return &SQLCommunityPostRepo{db: conn}
}

func (r *SQLCommunityPostRepo) Create(ctx context.Context, p *domain.CommunityPost) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	createdAt := nowUTC()
	if !p.CreatedAt.IsZero() {
		createdAt = formatTime(p.CreatedAt)
	}
	query := `INSERT INTO community_posts (id, user_id, body, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), p.ID, p.UserID, p.Body, createdAt); err != nil {
		return fmt.Errorf("inserting community post: %w", Classify(err))
	}
	return nil
}

func (r *SQLCommunityPostRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM community_posts WHERE user_id = ?`
	if err := sqlx.GetContext(ctx, r.db, &n, r.db.Rebind(query), userID); err != nil {
		return 0, fmt.Errorf("counting community posts: %w", Classify(err))
	}
	return n, nil
}

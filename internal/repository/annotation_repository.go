package repository

import (
	"context"
	"database/sql"

	"github.com/lewtec/apontador/internal/domain"
)

// SQLRepository implements domain.AnnotationRepository on top of a SQL database
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRepository creates a new SQLRepository. The schema is expected to be migrated.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
	}
}

func (r *SQLRepository) q(query string) string {
	return rebind(r.dialect, query)
}

// List retrieves all annotations of a rater, oldest row first
func (r *SQLRepository) List(ctx context.Context, raterID string) ([]domain.Annotation, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
SELECT item_id, click_x, click_y FROM annotations WHERE rater_id = ? ORDER BY id
`), raterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Annotation
	for rows.Next() {
		ann := domain.Annotation{RaterID: raterID}
		if err := rows.Scan(&ann.ItemID, &ann.X, &ann.Y); err != nil {
			return nil, err
		}
		result = append(result, ann)
	}
	return result, rows.Err()
}

// Upsert creates or overwrites an annotation. The row keeps its id, and with it its
// position, when overwritten.
func (r *SQLRepository) Upsert(ctx context.Context, raterID string, itemID string, x, y int) error {
	_, err := r.db.ExecContext(ctx, r.q(`
INSERT INTO annotations (rater_id, item_id, click_x, click_y) VALUES (?, ?, ?, ?)
ON CONFLICT (rater_id, item_id) DO UPDATE SET click_x = excluded.click_x, click_y = excluded.click_y, annotated_at = CURRENT_TIMESTAMP
`), raterID, itemID, x, y)
	return err
}

// Delete removes the annotation of a rater for an item
func (r *SQLRepository) Delete(ctx context.Context, raterID string, itemID string) error {
	_, err := r.db.ExecContext(ctx, r.q(`DELETE FROM annotations WHERE rater_id = ? AND item_id = ?`), raterID, itemID)
	return err
}

// DeleteAll removes every annotation of a rater
func (r *SQLRepository) DeleteAll(ctx context.Context, raterID string) error {
	_, err := r.db.ExecContext(ctx, r.q(`DELETE FROM annotations WHERE rater_id = ?`), raterID)
	return err
}

// Raters lists raters with at least one annotation
func (r *SQLRepository) Raters(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT rater_id FROM annotations ORDER BY rater_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var rater string
		if err := rows.Scan(&rater); err != nil {
			return nil, err
		}
		result = append(result, rater)
	}
	return result, rows.Err()
}

// CountByRater returns the number of annotations of a rater
func (r *SQLRepository) CountByRater(ctx context.Context, raterID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM annotations WHERE rater_id = ?`), raterID).Scan(&count)
	return count, err
}

// Verify that SQLRepository implements domain.AnnotationRepository
var _ domain.AnnotationRepository = (*SQLRepository)(nil)

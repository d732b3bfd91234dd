package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veein-web/AI-Background-Remover/internal/models"
)

type ImageRepository struct {
	db *sql.DB
}

func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create records an upload. Re-uploading a name the account already has
// replaces that row, matching the overwritten staged file.
func (r *ImageRepository) Create(ctx context.Context, image models.Image) error {
	const query = `
		INSERT INTO images (
			id, user_id, original_name, processed_name, width, height, size_bytes, checksum, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)
		ON CONFLICT (user_id, processed_name) DO UPDATE SET
			id = EXCLUDED.id,
			original_name = EXCLUDED.original_name,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			size_bytes = EXCLUDED.size_bytes,
			checksum = EXCLUDED.checksum,
			created_at = EXCLUDED.created_at
	`

	_, err := r.db.ExecContext(ctx, query,
		image.ID,
		image.UserID,
		image.OriginalName,
		image.ProcessedName,
		image.Width,
		image.Height,
		image.SizeBytes,
		image.Checksum,
	)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// ListByUser returns the newest uploads of one account first.
func (r *ImageRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Image, error) {
	const query = `
		SELECT id, user_id, original_name, processed_name, width, height, size_bytes, checksum, created_at
		FROM images
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var image models.Image
		if err := rows.Scan(
			&image.ID,
			&image.UserID,
			&image.OriginalName,
			&image.ProcessedName,
			&image.Width,
			&image.Height,
			&image.SizeBytes,
			&image.Checksum,
			&image.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

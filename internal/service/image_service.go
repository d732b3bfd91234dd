package service

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Veein-web/AI-Background-Remover/internal/billing"
	"github.com/Veein-web/AI-Background-Remover/internal/ids"
	"github.com/Veein-web/AI-Background-Remover/internal/media/codec"
	"github.com/Veein-web/AI-Background-Remover/internal/media/sniffer"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/rembg"
	"github.com/Veein-web/AI-Background-Remover/internal/staging"
)

type ImageService struct {
	area      staging.Area
	remover   rembg.Remover
	images    ImageStore
	maxPixels int
	log       zerolog.Logger
}

func NewImageService(area staging.Area, remover rembg.Remover, images ImageStore, maxPixels int, log zerolog.Logger) *ImageService {
	return &ImageService{
		area:      area,
		remover:   remover,
		images:    images,
		maxPixels: maxPixels,
		log:       log,
	}
}

type ProcessResult struct {
	Image models.Image
	Tiers []billing.QualityTier
}

// Process stages an upload, removes its background and stages the PNG
// result. A processed file is written only after the transform succeeded.
func (s *ImageService) Process(ctx context.Context, owner models.User, filename string, data []byte) (ProcessResult, error) {
	if staging.SecureFilename(filename) == "" {
		return ProcessResult{}, ErrInvalidFilename
	}

	original, err := s.area.StoreOriginal(ctx, owner.ID, filename, data)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("store original: %w", err)
	}

	if _, err := sniffer.DetectHead(data); err != nil {
		return ProcessResult{}, &TransformError{Cause: err}
	}
	src, _, err := codec.DecodeLimited(data, s.maxPixels)
	if err != nil {
		return ProcessResult{}, &TransformError{Cause: err}
	}

	out, err := s.remover.Remove(ctx, src)
	if err != nil {
		return ProcessResult{}, &TransformError{Cause: err}
	}

	encoded, err := codec.EncodePNG(out)
	if err != nil {
		return ProcessResult{}, &TransformError{Cause: err}
	}

	processed := staging.ProcessedName(original)
	if err := s.area.StoreProcessed(ctx, owner.ID, processed, encoded); err != nil {
		return ProcessResult{}, fmt.Errorf("store processed: %w", err)
	}

	sum := sha256.Sum256(encoded)
	bounds := out.Bounds()
	record := models.Image{
		ID:            ids.NewSortable(),
		UserID:        owner.ID,
		OriginalName:  original,
		ProcessedName: processed,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		SizeBytes:     int64(len(encoded)),
		Checksum:      sum[:],
	}
	if err := s.images.Create(ctx, record); err != nil {
		s.log.Warn().Err(err).Str("user_id", owner.ID).Str("processed", processed).Msg("record upload failed")
	}

	s.log.Info().
		Str("user_id", owner.ID).
		Str("processed", processed).
		Int("width", record.Width).
		Int("height", record.Height).
		Msg("background removed")

	return ProcessResult{Image: record, Tiers: billing.Tiers()}, nil
}

func (s *ImageService) Recent(ctx context.Context, owner models.User, limit int) ([]models.Image, error) {
	return s.images.ListByUser(ctx, owner.ID, limit)
}

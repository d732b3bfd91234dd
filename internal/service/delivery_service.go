package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Veein-web/AI-Background-Remover/internal/billing"
	"github.com/Veein-web/AI-Background-Remover/internal/media/codec"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/repository"
	"github.com/Veein-web/AI-Background-Remover/internal/staging"
)

type DeliveryService struct {
	users     AccountStore
	area      staging.Area
	maxPixels int
	log       zerolog.Logger
}

func NewDeliveryService(users AccountStore, area staging.Area, maxPixels int, log zerolog.Logger) *DeliveryService {
	return &DeliveryService{users: users, area: area, maxPixels: maxPixels, log: log}
}

// Delivery is a resized image ready to send. Charged is what the download
// cost and Balance what the account holds afterwards.
type Delivery struct {
	Filename string
	Data     []byte
	Tier     billing.QualityTier
	Charged  int
	Balance  int
}

// Download resizes a processed image to the tier width and charges the
// account. The image is fully encoded before the debit, so a returned error
// always means nothing was charged.
func (s *DeliveryService) Download(ctx context.Context, account models.User, processedName, tierKey string) (Delivery, error) {
	tier, err := billing.Lookup(tierKey)
	if err != nil {
		return Delivery{}, ErrInvalidTier
	}

	if account.Credits < tier.Cost {
		return Delivery{}, &InsufficientCreditsError{Required: tier.Cost, Available: account.Credits}
	}

	src, err := staging.LoadProcessed(ctx, s.area, account.ID, processedName)
	if err != nil {
		if errors.Is(err, staging.ErrNotFound) {
			return Delivery{}, ErrImageNotFound
		}
		return Delivery{}, err
	}

	b := src.Bounds()
	w, h := billing.TargetSize(b.Dx(), b.Dy(), tier.Width)
	if s.maxPixels > 0 && !codec.WithinLimit(w, h, s.maxPixels) {
		return Delivery{}, fmt.Errorf("%w: %dx%d at %s", ErrOutputTooLarge, w, h, tier.Key)
	}

	resized, err := billing.Resize(src, tier.Width)
	if err != nil {
		return Delivery{}, fmt.Errorf("resize to %s: %w", tier.Key, err)
	}
	data, err := codec.EncodePNG(resized)
	if err != nil {
		return Delivery{}, err
	}

	balance := account.Credits
	if tier.Cost > 0 {
		balance, err = s.users.Debit(ctx, account.ID, tier.Cost)
		if errors.Is(err, repository.ErrInsufficientCredits) {
			available, balErr := s.users.Balance(ctx, account.ID)
			if balErr != nil {
				available = 0
			}
			return Delivery{}, &InsufficientCreditsError{Required: tier.Cost, Available: available}
		}
		if err != nil {
			return Delivery{}, fmt.Errorf("debit: %w", err)
		}
	}

	s.log.Info().
		Str("user_id", account.ID).
		Str("tier", tier.Key).
		Int("charged", tier.Cost).
		Int("balance", balance).
		Msg("download delivered")

	return Delivery{
		Filename: fmt.Sprintf("%s_%s.png", staging.OriginalBase(processedName), tier.Key),
		Data:     data,
		Tier:     tier,
		Charged:  tier.Cost,
		Balance:  balance,
	}, nil
}

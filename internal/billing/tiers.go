// Package billing holds the quality tiers a processed image can be bought
// at and the resize that produces a tier's output.
package billing

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
)

// FreeWidth is the preview width every tier table must offer at no cost.
const FreeWidth = 600

var ErrUnknownTier = errors.New("unknown quality tier")

type QualityTier struct {
	Key   string
	Name  string
	Width int
	Cost  int
}

var defaultTiers = []QualityTier{
	{Key: "sd", Name: "SD (Preview)", Width: 600, Cost: 0},
	{Key: "hd", Name: "HD (1280px)", Width: 1280, Cost: 1},
	{Key: "fhd", Name: "Full HD (1920px)", Width: 1920, Cost: 2},
	{Key: "2k", Name: "2K (2560px)", Width: 2560, Cost: 3},
}

func init() {
	if err := Validate(defaultTiers); err != nil {
		panic(err)
	}
}

// Tiers returns the tier table ordered by width.
func Tiers() []QualityTier {
	out := make([]QualityTier, len(defaultTiers))
	copy(out, defaultTiers)
	return out
}

func Lookup(key string) (QualityTier, error) {
	for _, tier := range defaultTiers {
		if tier.Key == key {
			return tier, nil
		}
	}
	return QualityTier{}, fmt.Errorf("%w: %q", ErrUnknownTier, key)
}

// Validate checks that tiers are ordered by width with strictly increasing
// cost, that keys are unique, and that the FreeWidth tier costs nothing.
func Validate(tiers []QualityTier) error {
	if len(tiers) == 0 {
		return errors.New("tier table is empty")
	}

	seen := make(map[string]struct{}, len(tiers))
	hasFree := false
	for i, tier := range tiers {
		if tier.Key == "" {
			return fmt.Errorf("tier %d has no key", i)
		}
		if _, dup := seen[tier.Key]; dup {
			return fmt.Errorf("duplicate tier key %q", tier.Key)
		}
		seen[tier.Key] = struct{}{}

		if tier.Width <= 0 || tier.Cost < 0 {
			return fmt.Errorf("tier %q: width must be positive and cost non-negative", tier.Key)
		}
		if tier.Width == FreeWidth {
			if tier.Cost != 0 {
				return fmt.Errorf("tier %q: %dpx must be free", tier.Key, FreeWidth)
			}
			hasFree = true
		}
		if i > 0 {
			prev := tiers[i-1]
			if tier.Width <= prev.Width || tier.Cost <= prev.Cost {
				return fmt.Errorf("tier %q must be wider and cost more than %q", tier.Key, prev.Key)
			}
		}
	}
	if !hasFree {
		return fmt.Errorf("no free %dpx tier", FreeWidth)
	}
	return nil
}

// TargetSize scales (srcW, srcH) to width, keeping the aspect ratio.
func TargetSize(srcW, srcH, width int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return width, 0
	}
	scale := float64(width) / float64(srcW)
	height := int(math.Round(float64(srcH) * scale))
	if height < 1 {
		height = 1
	}
	return width, height
}

// Resize resamples img to width with a Lanczos3 filter. Upscaling is allowed
// and a same-width request still goes through the resampler.
func Resize(img image.Image, width int) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("empty image")
	}
	if width <= 0 {
		return nil, fmt.Errorf("invalid target width %d", width)
	}

	w, h := TargetSize(b.Dx(), b.Dy(), width)
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3), nil
}

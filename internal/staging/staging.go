// Package staging keeps uploaded originals and their background-free
// versions. Files are addressed by a sanitized name inside the namespace of
// the account that uploaded them; writing a name that exists replaces it.
package staging

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/Veein-web/AI-Background-Remover/internal/media/codec"
)

type Namespace string

const (
	Originals Namespace = "originals"
	Processed Namespace = "processed"
)

const processedSuffix = "_processed.png"

var (
	ErrNotFound         = errors.New("staged file not found")
	ErrInvalidName      = errors.New("invalid file name")
	ErrInvalidNamespace = errors.New("invalid namespace")
)

type Area interface {
	// StoreOriginal sanitizes filename, writes data under it and returns the
	// sanitized name.
	StoreOriginal(ctx context.Context, owner, filename string, data []byte) (string, error)
	StoreProcessed(ctx context.Context, owner, name string, data []byte) error
	Open(ctx context.Context, ns Namespace, owner, name string) (io.ReadCloser, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied file name to a flat ASCII name.
// Path separators and whitespace become underscores, every other unsafe
// character is dropped and leading or trailing dots and underscores are
// trimmed. The result may be empty.
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// ProcessedName derives the processed file name from a sanitized original.
func ProcessedName(sanitized string) string {
	return strings.TrimSuffix(sanitized, path.Ext(sanitized)) + processedSuffix
}

// OriginalBase recovers the original's base name from a processed name.
func OriginalBase(processed string) string {
	if base, ok := strings.CutSuffix(processed, processedSuffix); ok {
		return base
	}
	return strings.TrimSuffix(processed, path.Ext(processed))
}

// LoadProcessed opens and decodes a processed image.
func LoadProcessed(ctx context.Context, area Area, owner, name string) (image.Image, error) {
	rc, err := area.Open(ctx, Processed, owner, name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()

	img, _, err := codec.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return img, nil
}

func checkName(name string) error {
	if name == "" || SecureFilename(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func checkNamespace(ns Namespace) error {
	if ns != Originals && ns != Processed {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}
	return nil
}

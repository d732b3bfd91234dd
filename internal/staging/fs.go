package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FSArea stores files under {root}/{namespace}/{owner}/{name}.
type FSArea struct {
	root string
}

func NewFSArea(root string) (*FSArea, error) {
	for _, ns := range []Namespace{Originals, Processed} {
		if err := os.MkdirAll(filepath.Join(root, string(ns)), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", ns, err)
		}
	}
	return &FSArea{root: root}, nil
}

func (a *FSArea) StoreOriginal(ctx context.Context, owner, filename string, data []byte) (string, error) {
	name := SecureFilename(filename)
	if err := a.write(Originals, owner, name, data); err != nil {
		return "", err
	}
	return name, nil
}

func (a *FSArea) StoreProcessed(ctx context.Context, owner, name string, data []byte) error {
	return a.write(Processed, owner, name, data)
}

func (a *FSArea) Open(ctx context.Context, ns Namespace, owner, name string) (io.ReadCloser, error) {
	p, err := a.path(ns, owner, name)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, ns, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

func (a *FSArea) path(ns Namespace, owner, name string) (string, error) {
	if err := checkNamespace(ns); err != nil {
		return "", err
	}
	if err := checkName(owner); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(a.root, string(ns), owner, name), nil
}

// write replaces the target through a rename so readers never observe a
// half written file.
func (a *FSArea) write(ns Namespace, owner, name string, data []byte) error {
	p, err := a.path(ns, owner, name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create owner dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".staging-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

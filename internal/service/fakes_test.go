package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Veein-web/AI-Background-Remover/internal/media/codec"
	"github.com/Veein-web/AI-Background-Remover/internal/models"
	"github.com/Veein-web/AI-Background-Remover/internal/repository"
	"github.com/Veein-web/AI-Background-Remover/internal/staging"
)

type memoryAccounts struct {
	mu      sync.Mutex
	byID    map[string]models.User
	created int
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byID: map[string]models.User{}}
}

func (m *memoryAccounts) Create(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.byID[user.ID] = user
	m.created++
	return nil
}

func (m *memoryAccounts) FindByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memoryAccounts) GetByID(ctx context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryAccounts) FindOrCreateByEmail(ctx context.Context, user models.User) (models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return u, false, nil
		}
	}
	m.byID[user.ID] = user
	m.created++
	return user, true, nil
}

func (m *memoryAccounts) Debit(ctx context.Context, id string, cost int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.Credits < cost {
		return 0, repository.ErrInsufficientCredits
	}
	u.Credits -= cost
	m.byID[id] = u
	return u.Credits, nil
}

func (m *memoryAccounts) Balance(ctx context.Context, id string) (int, error) {
	u, err := m.GetByID(ctx, id)
	return u.Credits, err
}

func (m *memoryAccounts) put(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
	return u
}

type memorySessions struct {
	mu   sync.Mutex
	byID map[string]models.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{byID: map[string]models.Session{}}
}

func (m *memorySessions) Create(ctx context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[session.ID] = session
	return nil
}

func (m *memorySessions) GetByID(ctx context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (m *memorySessions) Touch(ctx context.Context, id string) error {
	return nil
}

func (m *memorySessions) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(m.byID, id)
	return nil
}

type memoryImages struct {
	mu     sync.Mutex
	images []models.Image
	err    error
}

func (m *memoryImages) Create(ctx context.Context, image models.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i, existing := range m.images {
		if existing.UserID == image.UserID && existing.ProcessedName == image.ProcessedName {
			m.images = append(m.images[:i], m.images[i+1:]...)
			break
		}
	}
	m.images = append(m.images, image)
	return nil
}

func (m *memoryImages) ListByUser(ctx context.Context, userID string, limit int) ([]models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Image
	for i := len(m.images) - 1; i >= 0 && len(out) < limit; i-- {
		if m.images[i].UserID == userID {
			out = append(out, m.images[i])
		}
	}
	return out, nil
}

// cutoutRemover makes the left half of the image transparent.
type cutoutRemover struct{}

func (cutoutRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Min.X+b.Dx()/2; x++ {
			out.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	return out, nil
}

type failingRemover struct{}

func (failingRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	return nil, errors.New("model unavailable")
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 200, G: 40, B: 40, A: 255}}, image.Point{}, draw.Src)
	data, err := codec.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func newTestArea(t *testing.T) *staging.FSArea {
	t.Helper()
	area, err := staging.NewFSArea(t.TempDir())
	require.NoError(t, err)
	return area
}

var nopLogger = zerolog.Nop()

const testMaxPixels = 50_000_000

// oversizedPNG declares a huge raster in its header and carries no pixels.
func oversizedPNG(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6
	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

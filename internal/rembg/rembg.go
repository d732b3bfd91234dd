// Package rembg talks to a background-removal model server.
package rembg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

var ErrSizeMismatch = errors.New("model output size differs from input")

// HTTPRemover calls the /api/remove endpoint of a rembg server
// (`rembg s`). The image travels as PNG in the multipart field "file" and
// the reply is a PNG with the background made transparent.
type HTTPRemover struct {
	endpoint string
	model    string
	client   *http.Client
}

func NewHTTPRemover(endpoint, model string, timeout time.Duration) *HTTPRemover {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &HTTPRemover{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "input.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	target := r.endpoint + "/api/remove"
	if r.model != "" {
		target += "?" + url.Values{"model": {r.model}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "image/png")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model server: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	out, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	if out.Bounds().Dx() != img.Bounds().Dx() || out.Bounds().Dy() != img.Bounds().Dy() {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrSizeMismatch,
			out.Bounds().Dx(), out.Bounds().Dy(), img.Bounds().Dx(), img.Bounds().Dy())
	}

	return out, nil
}

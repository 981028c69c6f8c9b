package imagesource

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/Rorical/RoriLens/internal/classifier"
)

// Resolver fetches and decodes the image behind a Source
type Resolver struct {
	client *http.Client
	blobs  *BlobStore
}

// NewResolver creates a resolver; timeout bounds each HTTP download
func NewResolver(blobs *BlobStore, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		blobs:  blobs,
	}
}

// Resolve returns the decoded image and its format name. Any failure is an
// invalid-image-source error.
func (r *Resolver) Resolve(ctx context.Context, src Source) (image.Image, string, error) {
	data, err := r.fetch(ctx, src)
	if err != nil {
		return nil, "", classifier.NewInvalidImageSourceError(src.Label, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", classifier.NewInvalidImageSourceError(src.Label, fmt.Errorf("unsupported image format: %w", err))
	}
	return img, format, nil
}

func (r *Resolver) fetch(ctx context.Context, src Source) ([]byte, error) {
	if src.Kind == KindBlob {
		data, _, ok := r.blobs.Get(src.Ref)
		if !ok {
			return nil, fmt.Errorf("blob has been revoked")
		}
		return data, nil
	}

	if strings.HasPrefix(src.Ref, "data:") {
		return decodeDataURL(src.Ref)
	}

	u, err := url.Parse(src.Ref)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	return r.download(ctx, u.String())
}

func (r *Resolver) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "RoriLens/1.0")
	req.Header.Set("Accept", "image/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	return data, nil
}

// decodeDataURL handles base64 "data:image/...;base64,..." references
func decodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URLs are supported")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// Package media normalizes uploaded photos and writes them to blob storage.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register gif
	"image/jpeg"
	_ "image/png" // register png

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
)

const contentTypeJPEG = "image/jpeg"

// MaxPixels caps the decoded size of an upload. Compressed images can claim
// dimensions far larger than their byte size.
const MaxPixels = 40_000_000

// Photo is an uploaded image file as received from the client.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Empty reports whether no bytes were attached.
func (p Photo) Empty() bool { return len(p.Data) == 0 }

// Config tunes the re-encoding step.
type Config struct {
	MaxDimension       int
	AvatarMaxDimension int
	Quality            int
}

// DefaultConfig keeps photos at most 2048px and avatars at 512px.
func DefaultConfig() Config {
	return Config{MaxDimension: 2048, AvatarMaxDimension: 512, Quality: 85}
}

// Uploader prepares photos and stores them under per-owner paths.
type Uploader struct {
	blobs  platform.Blobs
	cfg    Config
	logger *zap.Logger
}

// NewUploader builds an Uploader writing to blobs.
func NewUploader(blobs platform.Blobs, cfg Config, logger *zap.Logger) *Uploader {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultConfig().Quality
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{blobs: blobs, cfg: cfg, logger: logger}
}

// UploadMemoryPhoto stores the photo for a memory and returns its storage path.
func (u *Uploader) UploadMemoryPhoto(ctx context.Context, ownerID, memoryID string, p Photo) (string, error) {
	path := fmt.Sprintf("memories/%s/%s/%s.jpg", ownerID, memoryID, uuid.NewString())
	return path, u.put(ctx, path, p, u.cfg.MaxDimension)
}

// UploadAvatar stores a profile avatar and returns its storage path.
func (u *Uploader) UploadAvatar(ctx context.Context, ownerID string, p Photo) (string, error) {
	path := fmt.Sprintf("avatars/%s/%s.jpg", ownerID, uuid.NewString())
	return path, u.put(ctx, path, p, u.cfg.AvatarMaxDimension)
}

func (u *Uploader) put(ctx context.Context, path string, p Photo, maxDim int) error {
	data, err := Prepare(p, maxDim, u.cfg.Quality)
	if err != nil {
		return err
	}
	if err := u.blobs.Put(ctx, path, contentTypeJPEG, data); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	u.logger.Debug("photo stored",
		zap.String("path", path),
		zap.String("source", p.Filename),
		zap.Int("bytes", len(data)))
	return nil
}

// Prepare decodes a jpeg, png or gif, scales it down to fit maxDim on its longest
// side and re-encodes it as JPEG. Images already small enough keep their size.
func Prepare(p Photo, maxDim, quality int) ([]byte, error) {
	if p.Empty() {
		return nil, domain.Invalid("photo", "no image data")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Data))
	if err != nil {
		return nil, domain.Invalid("photo", "unsupported or corrupt image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, domain.Invalid("photo", fmt.Sprintf("image is %dx%d; the limit is %d megapixels", cfg.Width, cfg.Height, MaxPixels/1_000_000))
	}

	src, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return nil, domain.Invalid("photo", "unsupported or corrupt image")
	}

	w, h := FitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FitWithin scales (w, h) so neither side exceeds maxDim, keeping the aspect ratio.
// maxDim <= 0 disables scaling.
func FitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}

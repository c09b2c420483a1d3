package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/storage/memory"
)

func pngPhoto(t *testing.T, w, h int) Photo {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Photo{Filename: "test.png", ContentType: "image/png", Data: buf.Bytes()}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{name: "already small", w: 100, h: 50, max: 200, wantW: 100, wantH: 50},
		{name: "landscape", w: 4000, h: 2000, max: 2000, wantW: 2000, wantH: 1000},
		{name: "portrait", w: 1000, h: 4000, max: 400, wantW: 100, wantH: 400},
		{name: "disabled", w: 5000, h: 5000, max: 0, wantW: 5000, wantH: 5000},
		{name: "extreme ratio keeps one pixel", w: 10000, h: 1, max: 100, wantW: 100, wantH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestPrepareDownscalesToJPEG(t *testing.T) {
	out, err := Prepare(pngPhoto(t, 300, 150), 100, 80)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestPrepareRejectsGarbage(t *testing.T) {
	_, err := Prepare(Photo{Data: []byte("not an image")}, 100, 80)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = Prepare(Photo{}, 100, 80)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestUploaderPaths(t *testing.T) {
	store := memory.NewStore()
	up := NewUploader(store, DefaultConfig(), nil)
	ctx := context.Background()

	path, err := up.UploadMemoryPhoto(ctx, "u1", "m1", pngPhoto(t, 20, 20))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "memories/u1/m1/"))
	assert.True(t, strings.HasSuffix(path, ".jpg"))

	data, ct, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.NotEmpty(t, data)

	avatar, err := up.UploadAvatar(ctx, "u1", pngPhoto(t, 20, 20))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(avatar, "avatars/u1/"))
}

// pngHeader returns a PNG that declares w x h grayscale pixels but carries no pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(ihdr)))
	buf.Write(length[:])
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(chunk))
	buf.Write(crc[:])
	return buf.Bytes()
}

func TestPrepareRejectsOversizedImages(t *testing.T) {
	tests := []struct {
		name string
		w, h uint32
	}{
		{"square", 12000, 12000},
		{"panorama", 200000, 250},
		{"just over", 8001, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(Photo{Filename: "big.png", Data: pngHeader(tt.w, tt.h)}, 2048, 80)
			require.Error(t, err)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "photo", verr.Field)
			assert.Contains(t, verr.Message, "megapixels")
		})
	}
}

func TestPrepareAllowsImagesAtTheLimit(t *testing.T) {
	// 8000x5000 passes the size check and then fails on the missing pixel data.
	_, err := Prepare(Photo{Data: pngHeader(8000, 5000)}, 2048, 80)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotContains(t, verr.Message, "megapixels")
}

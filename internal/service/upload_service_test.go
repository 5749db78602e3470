package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gigboard/internal/config"
	"gigboard/internal/models"
	"gigboard/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadService_ReencodesToWebP(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(&config.Config{ImageUploadDir: dir, ImageMaxUploadSizeMB: 5, MediaBaseURL: "/media/"})
	actor := &policy.Actor{UserID: 1, Role: models.RoleFreelancer}

	up, err := svc.Upload(context.Background(), actor, UploadInput{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Content:     tinyPNG(t, 4096, 2048),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.URL, "/media/"))
	assert.True(t, strings.HasSuffix(up.URL, ".webp"))
	assert.Equal(t, MaxImageDimension, up.Width)
	assert.Equal(t, 1024, up.Height)

	_, statErr := os.Stat(filepath.Join(dir, strings.TrimPrefix(up.URL, "/media/")))
	assert.NoError(t, statErr)
}

func TestUploadService_Rejections(t *testing.T) {
	svc := NewUploadService(&config.Config{ImageUploadDir: t.TempDir(), ImageMaxUploadSizeMB: 1})
	actor := &policy.Actor{UserID: 1, Role: models.RoleEmployer}

	tests := []struct {
		name    string
		actor   *policy.Actor
		in      UploadInput
		code    string
		message string
	}{
		{"anonymous", nil, UploadInput{Content: tinyPNG(t, 4, 4)}, models.CodeUnauthorized, ""},
		{"empty", actor, UploadInput{}, models.CodeValidation, "No file uploaded."},
		{"too large", actor, UploadInput{Content: make([]byte, 2*1024*1024)}, models.CodeValidation, "File is too large (max 1MB)."},
		{"not an image", actor, UploadInput{Content: []byte("plain text, definitely not an image")}, models.CodeValidation, "Only JPEG, PNG, GIF and WebP images are allowed."},
		{"type mismatch", actor, UploadInput{ContentType: "image/gif", Content: tinyPNG(t, 4, 4)}, models.CodeValidation, "Image content type does not match the file."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.actor, tt.in)
			appErr := models.AsAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.code, appErr.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, appErr.Message)
			}
		})
	}
}

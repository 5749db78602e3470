package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gigboard/internal/config"
	"gigboard/internal/models"
	"gigboard/internal/policy"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir       = "./uploads"
	DefaultMaxUploadSizeMB = 10
	MaxImageDimension      = 2048
	WebPQuality            = 75
)

type UploadInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Upload describes a stored image.
type Upload struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

// UploadService re-encodes uploaded images to WebP and stores them on disk
// under names that are never derived from user input.
type UploadService struct {
	uploadDir          string
	baseURL            string
	maxUploadSizeBytes int64
}

func NewUploadService(cfg *config.Config) *UploadService {
	uploadDir := DefaultUploadDir
	maxUploadSizeMB := DefaultMaxUploadSizeMB
	baseURL := "/media"

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		if cfg.MediaBaseURL != "" {
			baseURL = strings.TrimRight(cfg.MediaBaseURL, "/")
		}
	}

	return &UploadService{
		uploadDir:          uploadDir,
		baseURL:            baseURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Dir is the directory served under the media base URL.
func (s *UploadService) Dir() string { return s.uploadDir }

func (s *UploadService) Upload(ctx context.Context, actor *policy.Actor, in UploadInput) (*Upload, error) {
	var out *Upload
	err := track(ctx, "upload_image", func(ctx context.Context) error {
		if err := policy.RequireAuth(actor); err != nil {
			return err
		}
		if len(in.Content) == 0 {
			return models.NewValidationError("No file uploaded.")
		}
		if int64(len(in.Content)) > s.maxUploadSizeBytes {
			return models.NewValidationError(fmt.Sprintf("File is too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024)))
		}

		detected := http.DetectContentType(in.Content)
		if !isAllowedImageMIME(detected) {
			return models.NewValidationError("Only JPEG, PNG, GIF and WebP images are allowed.")
		}

		decoded, format, err := image.Decode(bytes.NewReader(in.Content))
		if err != nil {
			return models.NewValidationError("The image could not be read.")
		}
		if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
			return models.NewValidationError("Image content type does not match the file.")
		}

		resized := resizeToFit(decoded, MaxImageDimension, MaxImageDimension)
		encoded, err := encodeWebP(resized, WebPQuality)
		if err != nil {
			return models.NewInternalError(err)
		}

		name := uuid.NewString() + ".webp"
		if err := writeBytesToFile(filepath.Join(s.uploadDir, name), encoded); err != nil {
			return models.NewInternalError(err)
		}

		b := resized.Bounds()
		out = &Upload{
			URL:    s.baseURL + "/" + name,
			Width:  b.Dx(),
			Height: b.Dy(),
			Bytes:  len(encoded),
		}
		return nil
	}, attribute.Int("upload.bytes", len(in.Content)))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

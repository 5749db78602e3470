package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"time"

	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

const aiStreamTimeout = 2 * time.Minute

// GetMe handles GET /api/me
// @Summary Current user with profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.users.Me(c.UserContext(), identity(c).UserID())
	return respond(c, user, err)
}

// UpdateProfile handles PUT /api/me/profile
// @Summary Update the public profile
// @Tags profile
// @Accept json
// @Produce json
// @Param request body service.ProfileUpdateInput true "Fields to change"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Router /me/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var in service.ProfileUpdateInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	profile, err := s.users.UpdateProfile(c.UserContext(), actor(c), in)
	return respondAction(c, fiber.StatusOK, "Profile updated.", profile, err)
}

// CompleteOnboarding handles POST /api/me/onboarding
// @Summary Choose an account type and finish the profile
// @Tags profile
// @Accept json
// @Produce json
// @Param request body service.OnboardingInput true "Onboarding form"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /me/onboarding [post]
func (s *Server) CompleteOnboarding(c *fiber.Ctx) error {
	var in service.OnboardingInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	profile, err := s.users.CompleteOnboarding(c.UserContext(), actor(c), in)
	return respondAction(c, fiber.StatusOK, "You're all set.", profile, err)
}

// UploadImage handles POST /api/uploads
// @Summary Upload an image
// @Description Images are re-encoded to WebP and served under /media
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 201 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Router /uploads [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	in := service.UploadInput{}
	fh, err := c.FormFile("file")
	if err == nil {
		f, openErr := fh.Open()
		if openErr != nil {
			return respondAction(c, 0, "", nil, models.NewInternalError(openErr))
		}
		defer f.Close()

		// One byte past the limit is enough for the size check.
		content, readErr := io.ReadAll(io.LimitReader(f, int64(s.config.ImageMaxUploadSizeMB)*1024*1024+1))
		if readErr != nil {
			return respondAction(c, 0, "", nil, models.NewInternalError(readErr))
		}
		in.Filename = fh.Filename
		in.ContentType = fh.Header.Get("Content-Type")
		in.Content = content
	}

	upload, err := s.uploads.Upload(c.UserContext(), actor(c), in)
	return respondAction(c, fiber.StatusCreated, "Image uploaded.", upload, err)
}

// Generate handles POST /api/ai/generate
// @Summary Stream AI writing help
// @Description Streams plain text as the model produces it
// @Tags ai
// @Accept json
// @Produce plain
// @Param request body service.GenerateInput true "Prompt"
// @Success 200 {string} string
// @Failure 400 {object} models.ActionResult
// @Failure 503 {object} models.ActionResult
// @Router /ai/generate [post]
func (s *Server) Generate(c *fiber.Ctx) error {
	var in service.GenerateInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	a := actor(c)
	if err := s.ai.Check(a, in); err != nil {
		return respondAction(c, 0, "", nil, err)
	}

	// The fiber context is recycled once the handler returns, so the stream
	// gets its own context carrying the request's log values.
	parent := context.WithoutCancel(c.UserContext())
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(parent, aiStreamTimeout)
		defer cancel()
		if err := s.ai.Generate(ctx, a, in, w); err != nil {
			middleware.Logger.WarnContext(ctx, "ai stream ended with error", slog.String("error", err.Error()))
		}
		_ = w.Flush()
	})
	return nil
}

package server

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"gigboard/internal/auth"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// The message is derived from the parameter name and the resource, e.g.
// ("id", "job") -> "Invalid job ID.", ("proposalId", "") -> "Invalid proposal ID.".
func (s *Server) parseID(c *fiber.Ctx, param, resource string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		label := humanizeParam(param)
		if param == "id" && resource != "" {
			label = resource + " ID"
		}
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+label+"."))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "proposalId" -> "proposal ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// identity returns the identity resolved by the session middleware, or nil.
func identity(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals("identity").(*auth.Identity)
	return id
}

// actor is the policy view of the current request's identity.
func actor(c *fiber.Ctx) *policy.Actor {
	return policy.ActorFrom(identity(c))
}

// bindJSON parses the request body into dst, writing a 400 on failure.
func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(models.Failure(models.NewValidationError("Invalid request body.")))
		return errResponseWritten
	}
	return nil
}

// respondAction answers a mutation with an ActionResult. A nil err yields
// the success status; otherwise the error code decides the status.
func respondAction(c *fiber.Ctx, status int, message string, data interface{}, err error) error {
	if err != nil {
		appErr := models.AsAppError(err)
		logUnexpected(c, appErr)
		return c.Status(models.HTTPStatus(appErr.Code)).JSON(models.Failure(appErr))
	}
	return c.Status(status).JSON(models.Success(message, data))
}

// respond answers a read with data, or with an ErrorResponse.
func respond(c *fiber.Ctx, data interface{}, err error) error {
	if err != nil {
		appErr := models.AsAppError(err)
		logUnexpected(c, appErr)
		return models.RespondWithError(c, models.HTTPStatus(appErr.Code), appErr)
	}
	return c.JSON(data)
}

// logUnexpected keeps the detail of internal failures in the logs only.
func logUnexpected(c *fiber.Ctx, appErr *models.AppError) {
	if appErr.Code != models.CodeInternal {
		return
	}
	middleware.Logger.ErrorContext(c.UserContext(), "request failed",
		slog.String("path", c.Path()),
		slog.String("error", appErr.Error()),
	)
}

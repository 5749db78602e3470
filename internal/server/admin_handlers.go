package server

import (
	"gigboard/internal/models"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminOverview handles GET /api/admin/overview
// @Summary Platform overview
// @Tags admin
// @Produce json
// @Success 200 {object} service.AdminOverviewView
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/overview [get]
func (s *Server) AdminOverview(c *fiber.Ctx) error {
	view, err := s.views.AdminOverview(c.UserContext(), actor(c))
	return respond(c, view, err)
}

// SuspendUser handles POST /api/admin/users/:id/suspend
// @Summary Suspend a user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Router /admin/users/{id}/suspend [post]
func (s *Server) SuspendUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id", "user")
	if err != nil {
		return nil
	}
	profile, err := s.admin.SuspendUser(c.UserContext(), actor(c), userID)
	return respondAction(c, fiber.StatusOK, "User suspended.", profile, err)
}

// ReinstateUser handles POST /api/admin/users/:id/reinstate
// @Summary Lift a suspension
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.ActionResult
// @Router /admin/users/{id}/reinstate [post]
func (s *Server) ReinstateUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id", "user")
	if err != nil {
		return nil
	}
	profile, err := s.admin.ReinstateUser(c.UserContext(), actor(c), userID)
	return respondAction(c, fiber.StatusOK, "User reinstated.", profile, err)
}

// GetSettings handles GET /api/admin/settings
// @Summary Platform settings
// @Tags admin
// @Produce json
// @Success 200 {object} models.Settings
// @Router /admin/settings [get]
func (s *Server) GetSettings(c *fiber.Ctx) error {
	settings, err := s.admin.GetSettings(c.UserContext())
	return respond(c, settings, err)
}

// UpdateSettings handles PUT /api/admin/settings
// @Summary Update platform settings
// @Tags admin
// @Accept json
// @Produce json
// @Param request body service.SettingsInput true "Settings"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Router /admin/settings [put]
func (s *Server) UpdateSettings(c *fiber.Ctx) error {
	var in service.SettingsInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	settings, err := s.admin.UpsertSettings(c.UserContext(), actor(c), in)
	return respondAction(c, fiber.StatusOK, "Settings saved.", settings, err)
}

// ListDisputes handles GET /api/admin/disputes
// @Summary Disputes
// @Tags admin
// @Produce json
// @Param status query string false "open or resolved"
// @Success 200 {array} models.Dispute
// @Router /admin/disputes [get]
func (s *Server) ListDisputes(c *fiber.Ctx) error {
	disputes, err := s.disputes.List(c.UserContext(), actor(c), models.DisputeStatus(c.Query("status")))
	return respond(c, disputes, err)
}

// ResolveDispute handles POST /api/admin/disputes/:id/resolve
// @Summary Resolve a dispute
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Dispute ID"
// @Param request body service.ResolveDisputeInput true "Resolution"
// @Success 200 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /admin/disputes/{id}/resolve [post]
func (s *Server) ResolveDispute(c *fiber.Ctx) error {
	disputeID, err := s.parseID(c, "id", "dispute")
	if err != nil {
		return nil
	}
	var in service.ResolveDisputeInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	dispute, err := s.disputes.Resolve(c.UserContext(), actor(c), disputeID, in)
	return respondAction(c, fiber.StatusOK, "Dispute resolved.", dispute, err)
}

// ListWithdrawals handles GET /api/admin/withdrawals
// @Summary Withdrawal requests
// @Tags admin
// @Produce json
// @Param status query string false "pending, processing or completed"
// @Success 200 {array} models.WithdrawalRequest
// @Router /admin/withdrawals [get]
func (s *Server) ListWithdrawals(c *fiber.Ctx) error {
	requests, err := s.wallet.ListWithdrawals(c.UserContext(), actor(c), models.WithdrawalStatus(c.Query("status")))
	return respond(c, requests, err)
}

// AdvanceWithdrawal handles POST /api/admin/withdrawals/:id/advance
// @Summary Move a withdrawal to its next status
// @Tags admin
// @Produce json
// @Param id path int true "Withdrawal ID"
// @Success 200 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /admin/withdrawals/{id}/advance [post]
func (s *Server) AdvanceWithdrawal(c *fiber.Ctx) error {
	withdrawalID, err := s.parseID(c, "id", "withdrawal")
	if err != nil {
		return nil
	}
	request, err := s.wallet.AdvanceWithdrawal(c.UserContext(), actor(c), withdrawalID)
	return respondAction(c, fiber.StatusOK, "Withdrawal advanced.", request, err)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags as seen by the caller
// @Tags admin
// @Produce json
// @Success 200 {array} featureflags.Flag
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.List(identity(c).UserID()),
	})
}

package server

import (
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetWallet handles GET /api/wallet
// @Summary Balance, ledger and withdrawals
// @Tags wallet
// @Produce json
// @Success 200 {object} service.WalletSummaryView
// @Router /wallet [get]
func (s *Server) GetWallet(c *fiber.Ctx) error {
	view, err := s.views.WalletSummary(c.UserContext(), actor(c))
	return respond(c, view, err)
}

// RequestWithdrawal handles POST /api/wallet/withdrawals
// @Summary Request a withdrawal
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body service.WithdrawalInput true "Withdrawal"
// @Success 201 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Router /wallet/withdrawals [post]
func (s *Server) RequestWithdrawal(c *fiber.Ctx) error {
	var in service.WithdrawalInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	request, err := s.wallet.RequestWithdrawal(c.UserContext(), actor(c), in)
	return respondAction(c, fiber.StatusCreated, "Withdrawal requested.", request, err)
}

// FreelancerDashboard handles GET /api/dashboard/freelancer
// @Summary Freelancer dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.FreelancerDashboardView
// @Failure 403 {object} models.ErrorResponse
// @Router /dashboard/freelancer [get]
func (s *Server) FreelancerDashboard(c *fiber.Ctx) error {
	view, err := s.views.FreelancerDashboard(c.UserContext(), actor(c))
	return respond(c, view, err)
}

// EmployerDashboard handles GET /api/dashboard/employer
// @Summary Employer dashboard
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.EmployerDashboardView
// @Failure 403 {object} models.ErrorResponse
// @Router /dashboard/employer [get]
func (s *Server) EmployerDashboard(c *fiber.Ctx) error {
	view, err := s.views.EmployerDashboard(c.UserContext(), actor(c))
	return respond(c, view, err)
}

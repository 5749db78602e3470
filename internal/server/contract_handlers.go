package server

import (
	"gigboard/internal/models"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListContracts handles GET /api/contracts
// @Summary The user's contracts
// @Tags contracts
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} models.Contract
// @Router /contracts [get]
func (s *Server) ListContracts(c *fiber.Ctx) error {
	contracts, err := s.contracts.List(c.UserContext(), actor(c), models.ContractStatus(c.Query("status")))
	return respond(c, contracts, err)
}

// GetContract handles GET /api/contracts/:id
// @Summary Contract workspace
// @Description Terms, milestones and the recent conversation
// @Tags contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} service.ContractWorkspaceView
// @Failure 403 {object} models.ErrorResponse
// @Router /contracts/{id} [get]
func (s *Server) GetContract(c *fiber.Ctx) error {
	contractID, err := s.parseID(c, "id", "contract")
	if err != nil {
		return nil
	}
	view, err := s.views.ContractWorkspace(c.UserContext(), actor(c), contractID)
	return respond(c, view, err)
}

// CompleteContract handles POST /api/contracts/:id/complete
// @Summary Complete a contract
// @Tags contracts
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /contracts/{id}/complete [post]
func (s *Server) CompleteContract(c *fiber.Ctx) error {
	contractID, err := s.parseID(c, "id", "contract")
	if err != nil {
		return nil
	}
	contract, err := s.contracts.Complete(c.UserContext(), actor(c), contractID)
	return respondAction(c, fiber.StatusOK, "Contract completed.", contract, err)
}

// CreateMilestone handles POST /api/contracts/:id/milestones
// @Summary Add a milestone
// @Tags milestones
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param request body service.MilestoneInput true "Milestone"
// @Success 201 {object} models.ActionResult
// @Router /contracts/{id}/milestones [post]
func (s *Server) CreateMilestone(c *fiber.Ctx) error {
	contractID, err := s.parseID(c, "id", "contract")
	if err != nil {
		return nil
	}
	var in service.MilestoneInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	milestone, err := s.contracts.CreateMilestone(c.UserContext(), actor(c), contractID, in)
	return respondAction(c, fiber.StatusCreated, "Milestone added.", milestone, err)
}

// SubmitMilestone handles POST /api/milestones/:id/submit
// @Summary Submit work for review
// @Tags milestones
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Param request body service.SubmitMilestoneInput true "Deliverable"
// @Success 200 {object} models.ActionResult
// @Router /milestones/{id}/submit [post]
func (s *Server) SubmitMilestone(c *fiber.Ctx) error {
	milestoneID, err := s.parseID(c, "id", "milestone")
	if err != nil {
		return nil
	}
	var in service.SubmitMilestoneInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	milestone, err := s.contracts.SubmitMilestone(c.UserContext(), actor(c), milestoneID, in)
	return respondAction(c, fiber.StatusOK, "Milestone submitted for review.", milestone, err)
}

// ApproveMilestone handles POST /api/milestones/:id/approve
// @Summary Approve a milestone and release its payment
// @Tags milestones
// @Produce json
// @Param id path int true "Milestone ID"
// @Success 200 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /milestones/{id}/approve [post]
func (s *Server) ApproveMilestone(c *fiber.Ctx) error {
	milestoneID, err := s.parseID(c, "id", "milestone")
	if err != nil {
		return nil
	}
	milestone, err := s.contracts.ApproveMilestone(c.UserContext(), actor(c), milestoneID)
	return respondAction(c, fiber.StatusOK, "Milestone approved and payment released.", milestone, err)
}

// RejectMilestone handles POST /api/milestones/:id/reject
// @Summary Send a milestone back with feedback
// @Tags milestones
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Param request body service.RejectMilestoneInput true "Feedback"
// @Success 200 {object} models.ActionResult
// @Router /milestones/{id}/reject [post]
func (s *Server) RejectMilestone(c *fiber.Ctx) error {
	milestoneID, err := s.parseID(c, "id", "milestone")
	if err != nil {
		return nil
	}
	var in service.RejectMilestoneInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	milestone, err := s.contracts.RejectMilestone(c.UserContext(), actor(c), milestoneID, in)
	return respondAction(c, fiber.StatusOK, "Milestone sent back.", milestone, err)
}

// OpenDispute handles POST /api/contracts/:id/disputes
// @Summary Open a dispute
// @Tags disputes
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param request body service.DisputeInput true "Reason"
// @Success 201 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /contracts/{id}/disputes [post]
func (s *Server) OpenDispute(c *fiber.Ctx) error {
	contractID, err := s.parseID(c, "id", "contract")
	if err != nil {
		return nil
	}
	var in service.DisputeInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	dispute, err := s.disputes.Open(c.UserContext(), actor(c), contractID, in)
	return respondAction(c, fiber.StatusCreated, "Dispute opened. An admin will review it.", dispute, err)
}

// GetMessages handles GET /api/contracts/:id/messages
// @Summary Recent contract messages, oldest first
// @Tags chat
// @Produce json
// @Param id path int true "Contract ID"
// @Success 200 {array} models.Message
// @Router /contracts/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	contractID, err := s.parseID(c, "id", "contract")
	if err != nil {
		return nil
	}
	messages, err := s.chat.History(c.UserContext(), actor(c), contractID)
	return respond(c, messages, err)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage handles POST /api/contracts/:id/messages
// @Summary Send a contract message
// @Tags chat
// @Accept json
// @Produce json
// @Param id path int true "Contract ID"
// @Param request body sendMessageRequest true "Message"
// @Success 201 {object} models.ActionResult
// @Router /contracts/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	contractID, err := s.parseID(c, "id", "contract")
	if err != nil {
		return nil
	}
	var req sendMessageRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	message, err := s.chat.SendMessage(c.UserContext(), actor(c), contractID, req.Content)
	return respondAction(c, fiber.StatusCreated, "Message sent.", message, err)
}

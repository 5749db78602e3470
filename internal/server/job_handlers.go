package server

import (
	"gigboard/internal/models"
	"gigboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListJobs handles GET /api/jobs
// @Summary Browse open jobs
// @Tags jobs
// @Produce json
// @Param q query string false "Search text"
// @Param category query string false "Category"
// @Param budget_type query string false "fixed or hourly"
// @Param page query int false "Page, from 1"
// @Param page_size query int false "Page size, at most 50"
// @Success 200 {object} service.JobBoardView
// @Router /jobs [get]
func (s *Server) ListJobs(c *fiber.Ctx) error {
	var f service.JobBoardFilter
	if err := c.QueryParser(&f); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid query parameters."))
	}
	board, err := s.views.JobBoard(c.UserContext(), f)
	return respond(c, board, err)
}

// CreateJob handles POST /api/jobs
// @Summary Post a job
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body service.JobInput true "Job"
// @Success 201 {object} models.ActionResult
// @Failure 400 {object} models.ActionResult
// @Failure 403 {object} models.ActionResult
// @Router /jobs [post]
func (s *Server) CreateJob(c *fiber.Ctx) error {
	var in service.JobInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	job, err := s.jobs.CreateJob(c.UserContext(), actor(c), in)
	return respondAction(c, fiber.StatusCreated, "Job posted.", job, err)
}

// GetJob handles GET /api/jobs/:id
// @Summary Job detail
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} service.JobDetailView
// @Failure 404 {object} models.ErrorResponse
// @Router /jobs/{id} [get]
func (s *Server) GetJob(c *fiber.Ctx) error {
	jobID, err := s.parseID(c, "id", "job")
	if err != nil {
		return nil
	}
	view, err := s.views.JobDetail(c.UserContext(), actor(c), jobID)
	return respond(c, view, err)
}

// UpdateJob handles PUT /api/jobs/:id
// @Summary Edit a job
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path int true "Job ID"
// @Param request body service.JobInput true "Job"
// @Success 200 {object} models.ActionResult
// @Failure 403 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /jobs/{id} [put]
func (s *Server) UpdateJob(c *fiber.Ctx) error {
	jobID, err := s.parseID(c, "id", "job")
	if err != nil {
		return nil
	}
	var in service.JobInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	job, err := s.jobs.UpdateJob(c.UserContext(), actor(c), jobID, in)
	return respondAction(c, fiber.StatusOK, "Job updated.", job, err)
}

type jobStatusRequest struct {
	Status models.JobStatus `json:"status"`
}

// UpdateJobStatus handles PATCH /api/jobs/:id/status
// @Summary Change a job's status
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path int true "Job ID"
// @Param request body jobStatusRequest true "New status"
// @Success 200 {object} models.ActionResult
// @Failure 403 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /jobs/{id}/status [patch]
func (s *Server) UpdateJobStatus(c *fiber.Ctx) error {
	jobID, err := s.parseID(c, "id", "job")
	if err != nil {
		return nil
	}
	var req jobStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	job, err := s.jobs.UpdateJobStatus(c.UserContext(), actor(c), jobID, req.Status)
	return respondAction(c, fiber.StatusOK, "Job status updated.", job, err)
}

// SubmitProposal handles POST /api/jobs/:id/proposals
// @Summary Submit a proposal
// @Tags proposals
// @Accept json
// @Produce json
// @Param id path int true "Job ID"
// @Param request body service.ProposalInput true "Proposal"
// @Success 201 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /jobs/{id}/proposals [post]
func (s *Server) SubmitProposal(c *fiber.Ctx) error {
	jobID, err := s.parseID(c, "id", "job")
	if err != nil {
		return nil
	}
	var in service.ProposalInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	proposal, err := s.proposals.Submit(c.UserContext(), actor(c), jobID, in)
	return respondAction(c, fiber.StatusCreated, "Proposal submitted.", proposal, err)
}

// HireProposal handles POST /api/jobs/:id/proposals/:proposalId/hire
// @Summary Hire a freelancer
// @Description Creates the contract, marks the proposal hired and the job in progress
// @Tags proposals
// @Accept json
// @Produce json
// @Param id path int true "Job ID"
// @Param proposalId path int true "Proposal ID"
// @Param request body service.HireInput true "Escrow"
// @Success 201 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /jobs/{id}/proposals/{proposalId}/hire [post]
func (s *Server) HireProposal(c *fiber.Ctx) error {
	jobID, err := s.parseID(c, "id", "job")
	if err != nil {
		return nil
	}
	proposalID, err := s.parseID(c, "proposalId", "")
	if err != nil {
		return nil
	}
	var in service.HireInput
	if err := bindJSON(c, &in); err != nil {
		return nil
	}
	contract, err := s.proposals.Hire(c.UserContext(), actor(c), jobID, proposalID, in)
	return respondAction(c, fiber.StatusCreated, "Freelancer hired.", contract, err)
}

// ListMyProposals handles GET /api/proposals/mine
// @Summary The freelancer's proposals
// @Tags proposals
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {array} models.Proposal
// @Router /proposals/mine [get]
func (s *Server) ListMyProposals(c *fiber.Ctx) error {
	proposals, err := s.proposals.ListMine(c.UserContext(), actor(c), models.ProposalStatus(c.Query("status")))
	return respond(c, proposals, err)
}

// GetProposal handles GET /api/proposals/:id
// @Summary Proposal detail
// @Tags proposals
// @Produce json
// @Param id path int true "Proposal ID"
// @Success 200 {object} models.Proposal
// @Failure 403 {object} models.ErrorResponse
// @Router /proposals/{id} [get]
func (s *Server) GetProposal(c *fiber.Ctx) error {
	proposalID, err := s.parseID(c, "id", "proposal")
	if err != nil {
		return nil
	}
	proposal, err := s.proposals.Get(c.UserContext(), actor(c), proposalID)
	return respond(c, proposal, err)
}

// WithdrawProposal handles POST /api/proposals/:id/withdraw
// @Summary Withdraw a proposal
// @Tags proposals
// @Produce json
// @Param id path int true "Proposal ID"
// @Success 200 {object} models.ActionResult
// @Failure 409 {object} models.ActionResult
// @Router /proposals/{id}/withdraw [post]
func (s *Server) WithdrawProposal(c *fiber.Ctx) error {
	proposalID, err := s.parseID(c, "id", "proposal")
	if err != nil {
		return nil
	}
	proposal, err := s.proposals.Withdraw(c.UserContext(), actor(c), proposalID)
	return respondAction(c, fiber.StatusOK, "Proposal withdrawn.", proposal, err)
}

// ShortlistProposal handles POST /api/proposals/:id/shortlist
// @Summary Shortlist a proposal
// @Tags proposals
// @Produce json
// @Param id path int true "Proposal ID"
// @Success 200 {object} models.ActionResult
// @Router /proposals/{id}/shortlist [post]
func (s *Server) ShortlistProposal(c *fiber.Ctx) error {
	proposalID, err := s.parseID(c, "id", "proposal")
	if err != nil {
		return nil
	}
	proposal, err := s.proposals.Shortlist(c.UserContext(), actor(c), proposalID)
	return respondAction(c, fiber.StatusOK, "Proposal shortlisted.", proposal, err)
}

// DeclineProposal handles POST /api/proposals/:id/decline
// @Summary Decline a proposal
// @Tags proposals
// @Produce json
// @Param id path int true "Proposal ID"
// @Success 200 {object} models.ActionResult
// @Router /proposals/{id}/decline [post]
func (s *Server) DeclineProposal(c *fiber.Ctx) error {
	proposalID, err := s.parseID(c, "id", "proposal")
	if err != nil {
		return nil
	}
	proposal, err := s.proposals.Decline(c.UserContext(), actor(c), proposalID)
	return respondAction(c, fiber.StatusOK, "Proposal declined.", proposal, err)
}

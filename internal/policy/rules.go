package policy

import "gigboard/internal/models"

// Resource rules:
//
//	resource  read                               write                     status change
//	Job       any authenticated user             owning employer or admin  owning employer or admin
//	Proposal  proposal owner, job owner, admin   proposal owner or admin   job owner or admin
//	Contract  either participant or admin        either participant, admin n/a

func ownerOrAdmin(a *Actor, ownerID uint) error {
	if err := RequireAuth(a); err != nil {
		return err
	}
	if a.IsAdmin() || IsOwner(ownerID, a.UserID) {
		return nil
	}
	return models.NewForbiddenError(ReasonNotOwner)
}

func CanReadJob(a *Actor, _ *models.Job) error {
	return RequireAuth(a)
}

func CanWriteJob(a *Actor, job *models.Job) error {
	return ownerOrAdmin(a, job.EmployerID)
}

func CanChangeJobStatus(a *Actor, job *models.Job) error {
	return ownerOrAdmin(a, job.EmployerID)
}

// CanReadProposal needs the parent job to recognise its owner.
func CanReadProposal(a *Actor, p *models.Proposal, job *models.Job) error {
	if err := RequireAuth(a); err != nil {
		return err
	}
	if a.IsAdmin() || IsOwner(p.FreelancerID, a.UserID) || (job != nil && IsOwner(job.EmployerID, a.UserID)) {
		return nil
	}
	return models.NewForbiddenError("You do not have access to this proposal.")
}

func CanWriteProposal(a *Actor, p *models.Proposal) error {
	return ownerOrAdmin(a, p.FreelancerID)
}

func CanChangeProposalStatus(a *Actor, job *models.Job) error {
	return ownerOrAdmin(a, job.EmployerID)
}

func CanReadContract(a *Actor, c *models.Contract) error {
	return participantOrAdmin(a, c)
}

func CanWriteContract(a *Actor, c *models.Contract) error {
	return participantOrAdmin(a, c)
}

func participantOrAdmin(a *Actor, c *models.Contract) error {
	if err := RequireAuth(a); err != nil {
		return err
	}
	if a.IsAdmin() || c.IsParticipant(a.UserID) {
		return nil
	}
	return models.NewForbiddenError(ReasonNotParticipant)
}

// IsContractEmployer gates milestone creation, approval and rejection.
func IsContractEmployer(a *Actor, c *models.Contract) error {
	if err := RequireRole(a, models.RoleEmployer); err != nil {
		return err
	}
	if !IsOwner(c.EmployerID, a.UserID) {
		return models.NewForbiddenError("Only the contract's employer can do this.")
	}
	return nil
}

// IsContractFreelancer gates milestone submission.
func IsContractFreelancer(a *Actor, c *models.Contract) error {
	if err := RequireRole(a, models.RoleFreelancer); err != nil {
		return err
	}
	if !IsOwner(c.FreelancerID, a.UserID) {
		return models.NewForbiddenError("Only the contract's freelancer can do this.")
	}
	return nil
}

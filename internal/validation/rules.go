package validation

import (
	"log"

	"gigboard/internal/models"

	"github.com/go-playground/validator/v10"
)

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-role", enumRule(func(s string) bool { return models.Role(s).IsValid() }))
	// Admins are never self-assigned.
	mustRegister("is-signup-role", enumRule(func(s string) bool {
		r := models.Role(s)
		return r == models.RoleFreelancer || r == models.RoleEmployer
	}))
	mustRegister("is-job-status", enumRule(func(s string) bool { return models.JobStatus(s).IsValid() }))
	mustRegister("is-budget-type", enumRule(func(s string) bool { return models.BudgetType(s).IsValid() }))
	mustRegister("is-withdrawal-method", enumRule(func(s string) bool {
		m := models.WithdrawalMethod(s)
		return m == models.WithdrawalBank || m == models.WithdrawalWallet
	}))
	mustRegister("is-dispute-outcome", enumRule(func(s string) bool {
		o := models.DisputeOutcome(s)
		return o == models.OutcomeResume || o == models.OutcomeCancel
	}))
}

// enumRule adapts a membership check to a validator func. Empty values pass;
// `required` handles them.
func enumRule(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		return valid(value)
	}
}

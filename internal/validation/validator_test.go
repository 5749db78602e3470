package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobForm struct {
	Title      string   `json:"title" validate:"required,min=5,max=200"`
	BudgetType string   `json:"budget_type" validate:"required,is-budget-type"`
	BudgetMin  int64    `json:"budget_min" validate:"gt=0"`
	BudgetMax  int64    `json:"budget_max" validate:"gtefield=BudgetMin"`
	Skills     []string `json:"skills" validate:"max=3,dive,required"`
}

type roleForm struct {
	Role string `json:"role" label:"Account type" validate:"required,is-signup-role"`
}

func TestStruct_FirstViolationIsFieldSpecific(t *testing.T) {
	tests := []struct {
		name string
		in   jobForm
		want string
	}{
		{"missing title", jobForm{BudgetType: "fixed", BudgetMin: 1, BudgetMax: 1}, "Title is required."},
		{"short title", jobForm{Title: "Logo", BudgetType: "fixed", BudgetMin: 1, BudgetMax: 1}, "Title must be at least 5 characters."},
		{"bad budget type", jobForm{Title: "Logo design", BudgetType: "weekly", BudgetMin: 1, BudgetMax: 1}, "Budget type must be fixed or hourly."},
		{"zero budget", jobForm{Title: "Logo design", BudgetType: "fixed", BudgetMax: 1}, "Budget min must be greater than 0."},
		{"inverted budget", jobForm{Title: "Logo design", BudgetType: "hourly", BudgetMin: 50, BudgetMax: 10}, "Budget max must not be less than the minimum."},
		{"too many skills", jobForm{Title: "Logo design", BudgetType: "fixed", BudgetMin: 1, BudgetMax: 1, Skills: []string{"a", "b", "c", "d"}}, "Skills must have at most 3 entries."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(jobForm{Title: "Logo design", BudgetType: "fixed", BudgetMin: 100, BudgetMax: 200, Skills: []string{"A", "B"}}))
}

func TestStruct_LabelAndSignupRole(t *testing.T) {
	assert.NoError(t, Struct(roleForm{Role: "employer"}))

	err := Struct(roleForm{Role: "admin"})
	require.Error(t, err)
	assert.Equal(t, "Account type must be freelancer or employer.", err.Error())
}

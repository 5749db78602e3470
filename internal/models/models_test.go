package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		allowed  bool
	}{
		{JobDraft, JobOpen, true},
		{JobOpen, JobDraft, true},
		{JobOpen, JobCancelled, true},
		{JobOpen, JobInProgress, false},
		{JobInProgress, JobCompleted, false},
		{JobInProgress, JobCancelled, false},
		{JobCompleted, JobOpen, false},
		{JobCancelled, JobOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestWithdrawalStatusNext(t *testing.T) {
	next, ok := WithdrawalPending.Next()
	assert.True(t, ok)
	assert.Equal(t, WithdrawalProcessing, next)

	next, ok = WithdrawalProcessing.Next()
	assert.True(t, ok)
	assert.Equal(t, WithdrawalCompleted, next)

	_, ok = WithdrawalCompleted.Next()
	assert.False(t, ok)
}

func TestSettingsFee(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, int64(60), s.Fee(600))

	s.CommissionPercent = 0
	assert.Equal(t, int64(0), s.Fee(600))
}

func TestFailureHidesInternalDetail(t *testing.T) {
	res := Failure(errors.New("pq: relation does not exist"))
	assert.Equal(t, ActionError, res.Status)
	assert.Equal(t, GenericErrorMessage, res.Message)
	assert.Equal(t, CodeInternal, res.Code)

	res = Failure(NewValidationError("Title is required."))
	assert.Equal(t, "Title is required.", res.Message)
	assert.Equal(t, CodeValidation, res.Code)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 400, HTTPStatus(CodeValidation))
	assert.Equal(t, 401, HTTPStatus(CodeUnauthorized))
	assert.Equal(t, 403, HTTPStatus(CodeForbidden))
	assert.Equal(t, 404, HTTPStatus(CodeNotFound))
	assert.Equal(t, 409, HTTPStatus(CodeConflict))
	assert.Equal(t, 503, HTTPStatus(CodeUnavailable))
	assert.Equal(t, 500, HTTPStatus("anything"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

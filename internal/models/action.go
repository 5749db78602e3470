package models

// ActionStatus is the outcome reported to form submissions.
type ActionStatus string

const (
	ActionIdle    ActionStatus = "idle"
	ActionSuccess ActionStatus = "success"
	ActionError   ActionStatus = "error"
)

// ActionResult is the response shape of every mutating endpoint.
type ActionResult struct {
	Status  ActionStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Code    string       `json:"code,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
}

// Success builds a successful result.
func Success(message string, data interface{}) ActionResult {
	return ActionResult{Status: ActionSuccess, Message: message, Data: data}
}

// Failure builds an error result from err. Unclassified errors carry the
// generic message only.
func Failure(err error) ActionResult {
	appErr := AsAppError(err)
	return ActionResult{Status: ActionError, Message: appErr.Message, Code: appErr.Code}
}

// Package validation checks workflow inputs and reports the first violation
// as a field-specific, human readable message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldLabel)
		registerCustomRules(validate)
	})
	return validate
}

// fieldLabel names a field after its `label` tag, falling back to the json name.
func fieldLabel(f reflect.StructField) string {
	if label := f.Tag.Get("label"); label != "" {
		return label
	}
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		name = f.Name
	}
	return humanize(name)
}

func humanize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	if len(words) == 0 {
		return name
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}

// Struct validates s and returns the message of its first violation, or nil.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	return errors.New(message(errs[0]))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required.", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", field)
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries.", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than the minimum.", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL.", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "dive":
		return fmt.Sprintf("%s contains an invalid entry.", field)
	case "is-role", "is-signup-role":
		return fmt.Sprintf("%s must be freelancer or employer.", field)
	case "is-job-status":
		return fmt.Sprintf("%s is not a valid job status.", field)
	case "is-budget-type":
		return fmt.Sprintf("%s must be fixed or hourly.", field)
	case "is-withdrawal-method":
		return fmt.Sprintf("%s must be bank or wallet.", field)
	case "is-dispute-outcome":
		return fmt.Sprintf("%s must be resume or cancel.", field)
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}

package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
)

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// ValidationErrors collects every field failure of one struct.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrValidation }

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// media_type accepts only types the extractor can dispatch on.
	_ = v.RegisterValidation("media_type", func(fl validator.FieldLevel) bool {
		_, ok := constants.SupportedMediaTypes[constants.NormalizeMediaType(fl.Field().String())]
		return ok
	})
	return v
}

// ValidateStruct checks the `validate` tags of s.
func ValidateStruct(s interface{}) error {
	err := structValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Message: ruleMessage(fe),
		})
	}
	return out
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "media_type":
		return "must be a supported media type"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}

// ValidateAndReturnError validates s and returns an InvalidArgument status on failure
func ValidateAndReturnError(s interface{}) error {
	if err := ValidateStruct(s); err != nil {
		return InvalidArgumentError(err.Error())
	}
	return nil
}

package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ErrInvalidRequest struct {
	error
	Fields []string
}

func newErrInvalidRequest(verrs validator.ValidationErrors) *ErrInvalidRequest {
	messages := make([]string, 0, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		messages = append(messages, message(fe))
	}
	return &ErrInvalidRequest{error: fmt.Errorf("%s", strings.Join(messages, "; ")), Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_without":
		return "an address or a listing url is required"
	case "not_blank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "listing_url":
		return fmt.Sprintf("%s must be an absolute http or https url", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s rule", fe.Field(), fe.Tag())
	}
}

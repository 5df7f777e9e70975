package submission

import (
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/nuwe/site-forms/internal/domain"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// contactForm is the accepted contact payload. Field order is check order;
// msg holds the message reported when that field fails.
type contactForm struct {
	Name    string `json:"name" validate:"required" msg:"請輸入姓名"`
	Email   string `json:"email" validate:"required,email" msg:"請輸入有效的 Email"`
	Subject string `json:"subject" validate:"required" msg:"請輸入主旨"`
	Message string `json:"message" validate:"required" msg:"請輸入訊息內容"`
}

type newsletterForm struct {
	Email string `json:"email" validate:"required,email" msg:"請輸入有效的 Email"`
}

// ParseContact decodes and validates a contact payload. Unknown fields are
// dropped. Any failure is a *ValidationError.
func ParseContact(body io.Reader) (domain.ContactSubmission, error) {
	var form contactForm
	if err := decodeForm(body, &form); err != nil {
		return domain.ContactSubmission{}, err
	}
	return domain.ContactSubmission{
		Name:    form.Name,
		Email:   form.Email,
		Subject: form.Subject,
		Message: form.Message,
	}, nil
}

// ParseNewsletter decodes and validates a newsletter payload.
func ParseNewsletter(body io.Reader) (domain.NewsletterSubscription, error) {
	var form newsletterForm
	if err := decodeForm(body, &form); err != nil {
		return domain.NewsletterSubscription{}, err
	}
	return domain.NewsletterSubscription{Email: form.Email}, nil
}

func decodeForm(body io.Reader, form any) error {
	if err := render.DecodeJSON(body, form); err != nil {
		return &ValidationError{Message: DefaultValidationMessage}
	}
	return firstViolation(form, validate.Struct(form))
}

// firstViolation turns validator output into a ValidationError for the first
// failing field, using that field's msg tag.
func firstViolation(form any, err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: DefaultValidationMessage}
	}

	fe := fieldErrs[0]
	msg := DefaultValidationMessage
	if f, ok := reflect.TypeOf(form).Elem().FieldByName(fe.StructField()); ok {
		if tag := f.Tag.Get("msg"); tag != "" {
			msg = tag
		}
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

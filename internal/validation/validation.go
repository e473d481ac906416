// Package validation проверяет входные данные тегами go-playground/validator
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EmailTag тег проверки email по формату API
const EmailTag = "classroom_email"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// в сообщениях используем имена полей из json
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(EmailTag, func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	}); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", EmailTag, err))
	}

	return v
}

// Struct проверяет структуру по тегам validate
func Struct(s interface{}) error {
	return validate.Struct(s)
}

// Email проверяет один email
func Email(email string) error {
	return validate.Var(email, "required,"+EmailTag)
}

// Message собирает текст ошибки валидации для ответа клиенту
func Message(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return "Validation error: " + err.Error()
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return "Validation error: " + strings.Join(messages, ", ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case EmailTag:
		return field + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return field + " is not allowed to be empty"
		}
		return fmt.Sprintf("%s must contain at least %s item", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}

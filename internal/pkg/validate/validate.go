// Package validate holds the field rules shared by the API and the CLI client.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TagName matches gin's binding tag so request DTOs validate the same everywhere.
const TagName = "binding"

const minPasswordLen = 8

var ethAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// FieldError is a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FieldErrors collects every rejected field of a form.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Field returns the message for a field, if it was rejected.
func (fe FieldErrors) Field(name string) (string, bool) {
	for _, e := range fe {
		if e.Field == name {
			return e.Message, true
		}
	}
	return "", false
}

// Validator returns the shared instance with the custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.SetTagName(TagName)
		instance.RegisterTagNameFunc(jsonName)
		mustRegister(instance)
	})
	return instance
}

// RegisterGin installs the custom rules on gin's validator engine.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(jsonName)
	return registerRules(v)
}

// Struct validates a DTO and converts failures into FieldErrors.
func Struct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	return Translate(err)
}

// Translate turns validator errors into FieldErrors; other errors pass through.
func Translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// Email checks a single address.
func Email(s string) error {
	if err := Validator().Var(s, "required,email"); err != nil {
		if strings.TrimSpace(s) == "" {
			return FieldError{Field: "email", Message: "email is required"}
		}
		return FieldError{Field: "email", Message: "enter a valid email address"}
	}
	return nil
}

// Password checks complexity: length, upper, lower and a digit.
func Password(s string) error {
	if msg := passwordProblem(s); msg != "" {
		return FieldError{Field: "password", Message: msg}
	}
	return nil
}

func mustRegister(v *validator.Validate) {
	if err := registerRules(v); err != nil {
		panic(err)
	}
}

func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"password":        passwordRule,
		"eth_address":     ethAddressRule,
		"positive_amount": positiveAmountRule,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func ethAddressRule(fl validator.FieldLevel) bool {
	return ethAddress.MatchString(fl.Field().String())
}

func positiveAmountRule(fl validator.FieldLevel) bool {
	return amountProblem(fl.Field().String()) == ""
}

func amountProblem(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "amount must be a number"
	}
	if !d.IsPositive() {
		return "amount must be greater than zero"
	}
	return ""
}

func passwordRule(fl validator.FieldLevel) bool {
	return passwordProblem(fl.Field().String()) == ""
}

func passwordProblem(s string) string {
	if len(s) < minPasswordLen {
		return fmt.Sprintf("password must be at least %d characters", minPasswordLen)
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return "password must contain upper and lower case letters and a digit"
	}
	return ""
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "enter a valid email address"
	case "password":
		if msg := passwordProblem(fmt.Sprint(fe.Value())); msg != "" {
			return msg
		}
		return "password is too weak"
	case "eth_address":
		return "enter a valid address (0x followed by 40 hex characters)"
	case "positive_amount":
		if msg := amountProblem(fmt.Sprint(fe.Value())); msg != "" {
			return msg
		}
		return "amount is invalid"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

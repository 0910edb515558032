package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"noun-crm/internal/ledger"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultMaxBodyBytes caps request bodies accepted by BodyLimit
const DefaultMaxBodyBytes = 1 << 20

// ErrMalformedBody is returned when a request body is not valid JSON
var ErrMalformedBody = errors.New("malformed request body")

// phonePattern is checked against the phone with all whitespace removed,
// the same form customer lookups use.
var phonePattern = regexp.MustCompile(`^\+?[0-9()\-]{5,32}$`)

// maxPhoneLength bounds the stored form, which keeps inner whitespace
const maxPhoneLength = 32

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json field names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Money fields are compared as numbers by gt/gte/lte
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch v := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := v.Float64()
			return f
		case decimal.NullDecimal:
			if !v.Valid {
				return nil
			}
			f, _ := v.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})

	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		phone := strings.TrimSpace(fl.Field().String())
		if utf8.RuneCountInString(phone) > maxPhoneLength {
			return false
		}
		return phonePattern.MatchString(ledger.NormalizePhone(phone))
	})
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// BodyLimit rejects request bodies larger than maxBytes
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errs []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errs = append(errs, ValidationError{
				Field:   fieldPath(e),
				Message: getErrorMessage(e),
			})
		}
	}

	return errs
}

// fieldPath drops the top-level struct name, so items[0].quantity instead of CreateOrderRequest.items[0].quantity
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, found := strings.Cut(ns, "."); found {
		return rest
	}
	return e.Field()
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number"
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " item(s)"
		}
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	default:
		return "Invalid value"
	}
}

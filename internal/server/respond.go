package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	errs "github.com/matzehuels/novella/pkg/errors"
)

// maxBodyBytes bounds JSON request bodies other than whole projects.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorResponse{Code: string(code), Message: errs.UserMessage(err)})
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeNotFound, errs.ErrCodeProjectNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidName,
		errs.ErrCodeInvalidSource, errs.ErrCodeParse:
		return http.StatusBadRequest
	case errs.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	case errs.ErrCodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.New(errs.ErrCodeInvalidInput, "request body is empty")
		}
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request")
	}
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "validate request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldError(e))
	}
	return errs.New(errs.ErrCodeInvalidInput, "%s", strings.Join(msgs, "; "))
}

func fieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "ne":
		return fmt.Sprintf("%s must not be %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

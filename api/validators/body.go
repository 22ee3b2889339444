package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

const invalidInputMessage = "입력값을 확인해주세요."

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so details match the request payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() != reflect.String || strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// DecodeJSONBody strictly decodes a single JSON value into dest and runs its
// validate tags.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, invalidInputMessage).WithDetails(map[string]any{"body": "하나의 JSON 값만 허용됩니다."})
	}
	return Struct(dest)
}

// DecodeOptionalJSONBody is DecodeJSONBody for endpoints whose body may be empty.
func DecodeOptionalJSONBody(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return Struct(dest)
	}
	return DecodeJSONBody(w, r, dest)
}

// Struct runs validate tags on v and reports failures per JSON field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, invalidInputMessage)
	}
	details := make(map[string]string, len(fields))
	for _, fe := range fields {
		details[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, invalidInputMessage).WithDetails(details)
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	detail := "올바른 JSON이 아닙니다."
	switch {
	case errors.As(err, &tooLarge):
		detail = fmt.Sprintf("요청 본문은 %d바이트를 넘을 수 없습니다.", tooLarge.Limit)
	case errors.Is(err, io.EOF):
		detail = "요청 본문이 비어 있습니다."
	case errors.As(err, &typeErr):
		detail = fmt.Sprintf("%s 항목의 형식이 올바르지 않습니다.", typeErr.Field)
	case errors.As(err, &syntax):
		detail = fmt.Sprintf("%d번째 바이트에서 JSON 구문 오류가 있습니다.", syntax.Offset)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		detail = "알 수 없는 항목 " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, invalidInputMessage).WithDetails(map[string]any{"body": detail})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "필수 항목입니다."
	case "min":
		return fmt.Sprintf("%s 이상이어야 합니다.", fe.Param())
	case "max":
		return fmt.Sprintf("%s 이하여야 합니다.", fe.Param())
	case "gt":
		return fmt.Sprintf("%s보다 커야 합니다.", fe.Param())
	case "email":
		return "올바른 이메일 형식이 아닙니다."
	case "oneof":
		return fmt.Sprintf("%s 중 하나여야 합니다.", fe.Param())
	}
	return "올바르지 않은 값입니다."
}

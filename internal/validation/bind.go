package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

const maxBodySize = 10 << 20

// ErrInvalidBody возвращается, если тело запроса не удалось разобрать как JSON.
var ErrInvalidBody = errors.New("invalid request body")

// FieldErrors содержит сообщения об ошибках валидации по именам полей.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DecodeAndValidate разбирает JSON-тело запроса в out и проверяет его валидатором.
// Возвращает ErrInvalidBody для некорректного JSON и FieldErrors для нарушенных правил.
func DecodeAndValidate(r *http.Request, out any, v *validatorv10.Validate) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	return Struct(v, out)
}

// Struct проверяет уже заполненную структуру.
func Struct(v *validatorv10.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		return toFieldErrors(err)
	}
	return nil
}

func toFieldErrors(err error) error {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	out := make(FieldErrors, len(ve))
	for _, fe := range ve {
		out[fieldPath(fe.Namespace())] = message(fe)
	}
	return out
}

// fieldPath отбрасывает имя корневой структуры из пространства имён поля.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of " + fe.Param()
	case "wms_status", "financial_status", "fulfillment_status":
		return "unknown status " + fmt.Sprint(fe.Value())
	default:
		return "failed on " + fe.Tag()
	}
}

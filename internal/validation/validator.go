// Package validation содержит проверку входных данных HTTP-запросов.
package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/mmeshcher/ordersync/internal/model"
)

// New возвращает валидатор с зарегистрированными доменными правилами.
// Имена полей в ошибках берутся из json-тегов.
func New() *validatorv10.Validate {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("wms_status", func(fl validatorv10.FieldLevel) bool {
		return model.WMSStatus(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("financial_status", func(fl validatorv10.FieldLevel) bool {
		return model.IsFinancialStatus(fl.Field().String())
	})
	_ = v.RegisterValidation("fulfillment_status", func(fl validatorv10.FieldLevel) bool {
		return model.IsFulfillmentStatus(fl.Field().String())
	})

	return v
}

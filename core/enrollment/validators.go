package enrollment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

var (
	enrollmentStatusTag  = "enrollmentstatus"
	enrollmentStatusText = "invalid enrollment status"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(enrollmentStatusTag, func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		for _, s := range Statuses {
			if s == status {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, enrollmentStatusTag, enrollmentStatusText)
}

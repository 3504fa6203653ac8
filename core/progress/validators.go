package progress

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

var (
	progressTypeTag  = "progresstype"
	progressTypeText = "invalid progress type"

	progressStatusTag  = "progressstatus"
	progressStatusText = "invalid progress status"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(progressTypeTag, in(Types))
	core.RegisterCustomTranslation(validate, translator, progressTypeTag, progressTypeText)

	_ = validate.RegisterValidation(progressStatusTag, in(Statuses))
	core.RegisterCustomTranslation(validate, translator, progressStatusTag, progressStatusText)
}

func in(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, v := range values {
			if v == val {
				return true
			}
		}
		return false
	}
}

package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasa-lms/darasa/core"
)

var (
	courseStatusTag  = "coursestatus"
	courseStatusText = "invalid course status"

	courseLevelTag  = "courselevel"
	courseLevelText = "invalid course level"

	contentStatusTag  = "contentstatus"
	contentStatusText = "invalid status"

	lessonTypeTag  = "lessontype"
	lessonTypeText = "invalid lesson type"
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(courseStatusTag, oneOf(CourseStatuses))
	core.RegisterCustomTranslation(validate, translator, courseStatusTag, courseStatusText)

	_ = validate.RegisterValidation(courseLevelTag, oneOf(CourseLevels))
	core.RegisterCustomTranslation(validate, translator, courseLevelTag, courseLevelText)

	_ = validate.RegisterValidation(contentStatusTag, oneOf(ContentStatuses))
	core.RegisterCustomTranslation(validate, translator, contentStatusTag, contentStatusText)

	_ = validate.RegisterValidation(lessonTypeTag, oneOf(LessonTypes))
	core.RegisterCustomTranslation(validate, translator, lessonTypeTag, lessonTypeText)
}

func oneOf(values []string) validator.Func {
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

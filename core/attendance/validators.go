package attendance

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	statusTag  = "status"
	statusText = "must be one of: " + strings.Join(AllStatuses, ", ")
)

// InitValidators registers the attendance validators. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(recordStructValidation, RecordAttendance{})
}

func IsValidStatus(status string) bool {
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func statusValidation(fl validator.FieldLevel) bool {
	return IsValidStatus(fl.Field().String())
}

func recordStructValidation(sl validator.StructLevel) {
	ra := sl.Current().Interface().(RecordAttendance)
	if ra.Date.IsZero() {
		sl.ReportError(ra.Date, "date", "Date", "required", "")
	}
}

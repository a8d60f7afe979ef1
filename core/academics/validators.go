package academics

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	promotionStatusTag  = "promotionstatus"
	promotionStatusText = "must be one of: " + strings.Join(AllPromotionStatuses, ", ")
)

// InitValidators registers the academics validators. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(promotionStatusTag, promotionStatusValidation)
	core.RegisterCustomTranslation(validate, translator, promotionStatusTag, promotionStatusText)

	validate.RegisterStructValidation(examResultStructValidation, NewExamResult{})
}

func promotionStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllPromotionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func examResultStructValidation(sl validator.StructLevel) {
	ner := sl.Current().Interface().(NewExamResult)
	if ner.ExamDate.IsZero() {
		sl.ReportError(ner.ExamDate, "exam_date", "ExamDate", "required", "")
	}
}

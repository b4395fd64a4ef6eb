package admission

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/admissions/core"
)

var (
	marksTag  = "marks"
	marksText = "marks obtained cannot exceed total marks"
)

// InitValidators registers the admission validators & their translations.
func InitValidators(v *core.Validator) {
	v.Validate.RegisterStructValidation(academicStructValidation, AcademicDetails{})
	core.RegisterCustomTranslation(v.Validate, v.Translator, marksTag, marksText)
}

// academicStructValidation checks that marks obtained are within total marks, when the latter is known.
func academicStructValidation(sl validator.StructLevel) {
	ad, ok := sl.Current().Interface().(AcademicDetails)
	if !ok {
		return
	}
	if ad.TotalMarks > 0 && ad.MarksObtained > ad.TotalMarks {
		sl.ReportError(ad.MarksObtained, "marksObtained", "MarksObtained", marksTag, "")
	}
}

// Rejection holds the reviewer's reason, stored verbatim.
type Rejection struct {
	Reason string `json:"rejectionReason" validate:"required,notblank,max=2000"`
}

package core

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const DateLayout = "2006-01-02"

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	phoneTag   = "phone10"
	phoneText  = "must be a valid 10-digit phone number"
	phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

	isoDateTag  = "isodate"
	isoDateText = "must be a valid date (YYYY-MM-DD)"

	pastDateTag  = "pastdate"
	pastDateText = "must be a date in the past"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	nowFunc = time.Now // mockable
)

// Validator bundles the validator and the translator used to render its errors.
type Validator struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewValidator returns a Validator with the global validators registered.
// Apps register their own validators on top, eg: account.InitValidators(v).
func NewValidator() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	v := &Validator{
		Validate:   validator.New(),
		Translator: translator,
	}
	InitValidators(v.Validate, v.Translator)
	return v
}

// Check validates a struct and converts failures into a *ValidationError.
func (v *Validator) Check(s interface{}) error {
	err := v.Validate.Struct(s)
	if err == nil {
		return nil
	}
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		return v.ToValidationError(vErrs)
	}
	return err
}

// ToValidationError translates validator errors and keys them by dotted json path.
func (v *Validator) ToValidationError(vErrs validator.ValidationErrors) error {
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, FieldError{Field: FieldPath(vErr), Error: vErr.Translate(v.Translator)})
	}
	return NewValidationError(nil, flds...)
}

// FieldPath returns the namespace of the field without the top level struct name,
// eg: "SubmitApplication.personalDetails.phone" -> "personalDetails.phone"
func FieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	RegisterCustomTranslation(validate, translator, isoDateTag, isoDateText)

	_ = validate.RegisterValidation(pastDateTag, pastDateValidation)
	RegisterCustomTranslation(validate, translator, pastDateTag, pastDateText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	return !IsBlank(fl.Field().String())
}

func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func isoDateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

// pastDateValidation only allows YYYY-MM-DD dates strictly before today (UTC).
func pastDateValidation(fl validator.FieldLevel) bool {
	date, err := time.Parse(DateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	today := nowFunc().UTC().Truncate(24 * time.Hour)
	return date.Before(today)
}

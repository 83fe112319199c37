package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ujuzi/core"
)

var (
	materialKindTag  = "materialkind"
	materialKindText = "kind must be one of TEXT, LINK, FILE, IMAGE"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(materialKindTag, materialKindValidation)
	core.RegisterCustomTranslation(validate, translator, materialKindTag, materialKindText)
}

func materialKindValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, kind := range Kinds {
		if val == kind {
			return true
		}
	}
	return false
}

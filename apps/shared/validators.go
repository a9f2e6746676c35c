// Package shared holds the setup common to the API and the admin CLI.
package shared

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/settings"
	"github.com/profpay/profpay/core/user"
)

// NewValidator returns a validator with every custom validation registered,
// and the english translator of its errors.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	settings.InitValidators(validate, translator)
	return validate, translator
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

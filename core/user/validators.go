package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/aicanvas/core"
)

var (
	roleTag  = "role"
	roleText = "{0} must be one of: professor, student"
)

// InitValidators registers the user validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

// roleValidation checks that the provided role is one of AllRoles.
func roleValidation(fl validator.FieldLevel) bool {
	return IsValidRole(fl.Field().String())
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

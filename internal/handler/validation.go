package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"
	requiredText = "{0} is required"
)

// newValidator builds a validator whose errors name fields by their JSON tag
// and render as English sentences.
func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	uni := ut.New(en.New())
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	registerTranslation(validate, trans, notBlankTag, notBlankText, false)
	registerTranslation(validate, trans, "required", requiredText, true)
	return validate, trans
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// notBlank rejects strings made of whitespace only. Nil pointers are left
// to omitnil.
func notBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return true
		}
		f = f.Elem()
	}
	if f.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(f.String()) != ""
}

// fieldErrors maps each failing field to a readable message.
func (h *Handler) fieldErrors(err error) (map[string]string, bool) {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(h.trans)
	}
	return out, true
}

// Валидация запросов панели через go-playground/validator.
package cmsadmin

import (
	"strings"
	"unicode/utf8"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/go-playground/validator"
)

const maxTagLength = 50

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	err := v.RegisterValidation("contentType", contentTypeValidator)
	if err != nil {
		return nil
	}

	err = v.RegisterValidation("tag", tagValidator)
	if err != nil {
		return nil
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		_, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return err
	}
	return nil
}

// 1 blog, 2 video, 3 podcast, 4 animation
func contentTypeValidator(fl validator.FieldLevel) bool {
	return apiclient.ContentType(fl.Field().Int()).Valid()
}

// Тег - непустая строка без запятой, запятая разделяет теги в поле ввода
func tagValidator(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" || strings.Contains(value, ",") {
		return false
	}
	return utf8.RuneCountInString(value) <= maxTagLength
}

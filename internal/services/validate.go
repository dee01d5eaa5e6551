package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/isdelr/blogpost-be/internal/apperr"
	"github.com/isdelr/blogpost-be/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseCategory(fl.Field().String())
		return ok
	})
	v.RegisterAlias("password", fmt.Sprintf("min=%d", models.MinPasswordLength))
	v.RegisterAlias("title", fmt.Sprintf("max=%d", models.MaxTitleLength))
	v.RegisterAlias("postbody", fmt.Sprintf("min=%d", models.MinBodyLength))
	return v
}

// check validates in and turns the first failing field into a Validation error via codeFor.
func check(in any, codeFor func(validator.FieldError) *apperr.Error) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return codeFor(verrs[0])
	}
	return apperr.Internal(err)
}

func missingInfo(validator.FieldError) *apperr.Error {
	return errMissingInfo()
}

func errMissingInfo() *apperr.Error {
	return apperr.Validation(apperr.CodeMissingInfo, "Missing information found")
}

func errPostNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeInvalidPost, "Invalid post id")
}

func errCommentNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeNotFound, "Invalid comment id")
}

func errAccountNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeNotFound, "Account not found")
}

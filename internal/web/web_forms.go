package web

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field name to its error message
type FieldErrors map[string]string

// Has reports whether the field has an error; used by templates
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// SubmitForm is the article metadata form of the submission start page
type SubmitForm struct {
	Title    string `form:"title" binding:"required,max=300"`
	Subtitle string `form:"subtitle" binding:"max=300"`
	Abstract string `form:"abstract"`
	Keywords string `form:"keywords" binding:"max=1000"`
}

// AuthorForm adds a new author to an article
type AuthorForm struct {
	FirstName   string `form:"first_name" binding:"required,max=300"`
	MiddleName  string `form:"middle_name" binding:"max=300"`
	LastName    string `form:"last_name" binding:"required,max=300"`
	Email       string `form:"email" binding:"required,email,max=254"`
	Institution string `form:"institution" binding:"required,max=1000"`
	Department  string `form:"department" binding:"max=300"`
	ORCID       string `form:"orcid" binding:"max=40"`
}

// trimStrings trims all string fields of a form struct in place
func trimStrings(form interface{}) {
	v := reflect.ValueOf(form).Elem()
	for i := 0; i < v.NumField(); i++ {
		if f := v.Field(i); f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// bindForm decodes and validates a posted form. Validation failures come back as FieldErrors;
// any other error is returned as err.
func bindForm(c *gin.Context, form interface{}) (FieldErrors, error) {
	var verrs validator.ValidationErrors
	if err := c.ShouldBind(form); err != nil && !errors.As(err, &verrs) {
		return nil, err
	}
	// whitespace-only values pass binding; validate the trimmed values
	trimStrings(form)
	err := validate.Struct(form)
	if err == nil {
		return nil, nil
	}
	if !errors.As(err, &verrs) {
		return nil, err
	}

	fieldErrors := FieldErrors{}
	t := reflect.TypeOf(form).Elem()
	for _, fe := range verrs {
		name := fe.Field()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if tag := sf.Tag.Get("form"); tag != "" {
				name = tag
			}
		}
		fieldErrors[name] = validationMessage(fe)
	}
	return fieldErrors, nil
}

// validate re-checks trimmed forms with the binding tags gin uses
var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	default:
		return "Enter a valid value."
	}
}

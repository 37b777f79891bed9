package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ExportForm is the user-facing export dialog: page size and page range,
// sort and status filter. Request converts it to the query Export sends.
type ExportForm struct {
	Status   bool   `json:"status"`
	FileName string `json:"fileName"`
	PageSize *int   `json:"pageSize" validate:"omitempty,min=1"`
	FromPage *int   `json:"fromPage" validate:"omitempty,min=1"`
	ToPage   *int   `json:"toPage" validate:"omitempty,min=1"`
	Sort     string `json:"sort" validate:"omitempty,oneof=asc desc"`
	SortBy   string `json:"sortBy" validate:"omitempty,excludesall=&=#"`
}

var formValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validatePageRange, ExportForm{})
	return v
})

// validatePageRange enforces toPage >= fromPage when both are set.
func validatePageRange(sl validator.StructLevel) {
	f := sl.Current().Interface().(ExportForm)
	if f.FromPage != nil && f.ToPage != nil && *f.ToPage < *f.FromPage {
		sl.ReportError(f.ToPage, "toPage", "ToPage", "gtefield", "fromPage")
	}
}

// Validate checks the form. A non-nil result is a *ValidationError.
func (f ExportForm) Validate() error {
	err := formValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

// Request maps the form onto export query parameters: the page size becomes
// the limit and the first page the offset.
func (f ExportForm) Request() ExportServersRequest {
	req := ExportServersRequest{
		Status: "false",
		Field:  f.SortBy,
		Order:  f.Sort,
	}
	if f.Status {
		req.Status = "true"
	}
	if f.PageSize != nil {
		req.Limit = *f.PageSize
	}
	if f.FromPage != nil {
		req.Offset = *f.FromPage
	}
	return req
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "gtefield":
		return "must be greater than or equal to " + fe.Param()
	case "excludesall":
		return "must not contain any of " + fe.Param()
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

package models

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidationResult reports per-field problems keyed by the JSON field name.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// Error joins the field messages so the result can travel as an error.
func (v ValidationResult) Error() string {
	parts := make([]string, 0, len(v.Errors))
	for _, field := range []string{"referenceName", "absolutePath", "type", "status"} {
		if msg, ok := v.Errors[field]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

var (
	errNameRequired = validation.NewError("validation_reference_name_required", "Reference name is required")
	errPathRequired = validation.NewError("validation_absolute_path_required", "Absolute path is required")
)

// ValidateForSave checks a draft before it is sent to the backend.
// Only referenceName and absolutePath are required; type and status are
// checked against their enums when set.
func ValidateForSave(d Draft) ValidationResult {
	name := strings.TrimSpace(d.ReferenceName)
	path := strings.TrimSpace(d.AbsolutePath)
	typ := string(d.Type)
	status := string(d.Status)

	err := validation.Errors{
		"referenceName": validation.Validate(name, validation.Required.ErrorObject(errNameRequired)),
		"absolutePath":  validation.Validate(path, validation.Required.ErrorObject(errPathRequired)),
		"type":          validation.Validate(typ, validation.In(string(TypeFolder), string(TypeFile)).Error("Type must be folder or file")),
		"status": validation.Validate(status, validation.In(
			string(StatusActive), string(StatusPaused), string(StatusIdea),
			string(StatusCompleted), string(StatusArchived),
		).Error("Unknown status")),
	}.Filter()

	res := ValidationResult{Valid: true, Errors: map[string]string{}}
	if err == nil {
		return res
	}
	res.Valid = false
	var fields validation.Errors
	if errors.As(err, &fields) {
		for k, v := range fields {
			res.Errors[k] = v.Error()
		}
	} else {
		res.Errors["_"] = err.Error()
	}
	return res
}

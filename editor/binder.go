package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alwitt/catalog/models"
	"github.com/go-playground/validator/v10"
)

// FieldError one failing form field
type FieldError struct {
	// Field the field name
	Field string `json:"field"`
	// Label the field label
	Label string `json:"label"`
	// Message what is wrong with the value
	Message string `json:"message"`
}

// ValidationErrors every failing form field, in schema order
type ValidationErrors []FieldError

// Error implements error
func (e ValidationErrors) Error() string {
	return fmt.Sprintf("invalid field values: %s", e.Summary())
}

// Summary human readable listing of the failing fields
func (e ValidationErrors) Summary() string {
	parts := make([]string, 0, len(e))
	for _, fieldErr := range e {
		parts = append(parts, fmt.Sprintf("%s %s", fieldErr.Label, fieldErr.Message))
	}
	return strings.Join(parts, "; ")
}

// AsMap failing field messages keyed by field name
func (e ValidationErrors) AsMap() map[string]string {
	result := map[string]string{}
	for _, fieldErr := range e {
		result[fieldErr.Field] = fieldErr.Message
	}
	return result
}

// FormBinder the edit form of one entity kind
type FormBinder struct {
	schema    models.EntitySchema
	validator *validator.Validate
	values    map[string]string
	preview   string
}

/*
NewFormBinder define a new form binder

	@param schema models.EntitySchema - the entity schema
	@returns new binder
*/
func NewFormBinder(schema models.EntitySchema) (*FormBinder, error) {
	validate := validator.New()
	if err := models.RegisterWithValidator(validate); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}
	binder := &FormBinder{schema: schema, validator: validate}
	binder.Bind(nil)
	return binder, nil
}

// Bind populate the form from a record, or clear the form and preview when nil
func (b *FormBinder) Bind(record *models.Record) {
	b.values = make(map[string]string, len(b.schema.Fields))
	for _, field := range b.schema.Fields {
		b.values[field.Name] = ""
	}
	b.preview = ""
	if record == nil {
		return
	}
	for _, field := range b.schema.Fields {
		b.values[field.Name] = record.Field(field.Name)
	}
	b.preview = record.AttachmentDataURI()
}

/*
SetValue update one form value

	@param field string - the field name
	@param value string - the new value
*/
func (b *FormBinder) SetValue(field string, value string) error {
	if _, ok := b.schema.Field(field); !ok {
		return fmt.Errorf("%s form field '%s' [%w]", b.schema.Kind, field, ErrUnknownField)
	}
	b.values[field] = value
	return nil
}

// Value read one form value
func (b *FormBinder) Value(field string) string {
	return b.values[field]
}

// Values copy of all form values
func (b *FormBinder) Values() map[string]string {
	result := make(map[string]string, len(b.values))
	for name, value := range b.values {
		result[name] = value
	}
	return result
}

// SetPreview update the attachment preview
func (b *FormBinder) SetPreview(dataURI string) {
	b.preview = dataURI
}

// Preview the attachment preview, empty if none
func (b *FormBinder) Preview() string {
	return b.preview
}

// describeFailure turn one validator failure into a user facing message
func describeFailure(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fieldErr.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fieldErr.Param())
	case "number":
		return "must be a whole number"
	case "numeric":
		return "must be a number"
	case "datetime":
		return "must be a date as YYYY-MM-DD"
	case "slug":
		return "must be lowercase letters and digits separated by dashes"
	}
	return fmt.Sprintf("is not valid (%s)", fieldErr.Tag())
}

// checkValue run one rule over one value
func (b *FormBinder) checkValue(value string, rule string) (string, error) {
	if rule == "" {
		return "", nil
	}
	err := b.validator.Var(value, rule)
	if err == nil {
		return "", nil
	}
	var failures validator.ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		return describeFailure(failures[0]), nil
	}
	return "", fmt.Errorf("rule '%s' is not usable [%w]", rule, err)
}

/*
ValidateAndExtract validate every form field and apply the values onto a copy of the target

The target is never modified. On validation failure the returned error is ValidationErrors.

	@param target models.Record - the record being edited
	@returns copy of the target with the form values applied
*/
func (b *FormBinder) ValidateAndExtract(target models.Record) (models.Record, error) {
	failures := ValidationErrors{}
	for _, field := range b.schema.Fields {
		value := b.values[field.Name]
		for _, rule := range []string{field.Rule, field.Type.BaseRule()} {
			message, err := b.checkValue(value, rule)
			if err != nil {
				return models.Record{}, fmt.Errorf("%s field '%s' [%w]", b.schema.Kind, field.Name, err)
			}
			if message != "" {
				failures = append(failures, FieldError{
					Field: field.Name, Label: field.Label, Message: message,
				})
				break
			}
		}
	}
	if len(failures) > 0 {
		return models.Record{}, failures
	}

	result := target.Clone()
	for _, field := range b.schema.Fields {
		result.Fields[field.Name] = b.values[field.Name]
	}
	return result, nil
}

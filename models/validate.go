package models

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	slugRegex       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	fieldNameRegex  = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
	entityKindRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,63}$`)
)

/*
ValidFieldName whether the string can be used as a schema field name

	@param name string - the candidate name
	@return whether valid
*/
func ValidFieldName(name string) bool {
	return fieldNameRegex.MatchString(name)
}

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation("slug", validateSlug); err != nil {
		return err
	}

	if err := v.RegisterValidation("field_name", validateFieldName); err != nil {
		return err
	}

	if err := v.RegisterValidation("entity_kind", validateEntityKind); err != nil {
		return err
	}

	if err := v.RegisterValidation("field_type", validateFieldType); err != nil {
		return err
	}

	if err := v.RegisterValidation("sort_direction", validateSortDirection); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"record_event_type", validateRecordEventType,
	); err != nil {
		return err
	}

	return nil
}

func validateSlug(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return slugRegex.MatchString(fl.Field().String())
}

func validateFieldName(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return ValidFieldName(fl.Field().String())
}

func validateEntityKind(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return entityKindRegex.MatchString(fl.Field().String())
}

func validateFieldType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch FieldTypeENUMType(fl.Field().String()) {
	case FieldTypeText:
		fallthrough
	case FieldTypeInteger:
		fallthrough
	case FieldTypeDecimal:
		fallthrough
	case FieldTypeDate:
		return true
	}
	return false
}

func validateSortDirection(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch SortDirectionENUMType(fl.Field().String()) {
	case SortAscending:
		fallthrough
	case SortDescending:
		return true
	}
	return false
}

func validateRecordEventType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch RecordEventTypeENUMType(fl.Field().String()) {
	case RecordEventTypeCreated:
		fallthrough
	case RecordEventTypeUpdated:
		fallthrough
	case RecordEventTypeDeleted:
		return true
	}
	return false
}

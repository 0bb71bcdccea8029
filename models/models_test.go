package models_test

import (
	"testing"

	"github.com/alwitt/catalog/models"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestCustomValidationMacros(t *testing.T) {
	assert := assert.New(t)

	validate := validator.New()
	assert.Nil(models.RegisterWithValidator(validate))

	type testCase struct {
		value string
		rule  string
		valid bool
	}

	testCases := []testCase{
		{value: "widgets", rule: "slug", valid: true},
		{value: "big-widgets-2", rule: "slug", valid: true},
		{value: "Widgets", rule: "slug", valid: false},
		{value: "widgets-", rule: "slug", valid: false},
		{value: "made_on", rule: "field_name", valid: true},
		{value: "2fast", rule: "field_name", valid: false},
		{value: "category", rule: "entity_kind", valid: true},
		{value: "Category", rule: "entity_kind", valid: false},
		{value: "DECIMAL", rule: "field_type", valid: true},
		{value: "BLOB", rule: "field_type", valid: false},
		{value: "DESC", rule: "sort_direction", valid: true},
		{value: "down", rule: "sort_direction", valid: false},
		{value: "RECORD_DELETED", rule: "record_event_type", valid: true},
		{value: "RECORD_VIEWED", rule: "record_event_type", valid: false},
	}

	for idx, oneTest := range testCases {
		err := validate.Var(oneTest.value, oneTest.rule)
		if oneTest.valid {
			assert.Nilf(err, "case %d", idx)
		} else {
			assert.NotNilf(err, "case %d", idx)
		}
	}
}

func TestEditStateTransitions(t *testing.T) {
	assert := assert.New(t)

	type testCase struct {
		from      models.EditStateENUMType
		operation models.EditOperationENUMType
		to        models.EditStateENUMType
		allowed   bool
	}

	testCases := []testCase{
		{
			from: models.EditStateEmpty, operation: models.EditOperationSelect,
			to: models.EditStateEditingExisting, allowed: true,
		},
		{
			from: models.EditStateEmpty, operation: models.EditOperationStartNew,
			to: models.EditStateEditingNew, allowed: true,
		},
		{
			from: models.EditStateEmpty, operation: models.EditOperationClear,
			to: models.EditStateEmpty, allowed: true,
		},
		{from: models.EditStateEmpty, operation: models.EditOperationSaved},
		{from: models.EditStateEmpty, operation: models.EditOperationDeleted},
		{
			from: models.EditStateEditingExisting, operation: models.EditOperationDeleted,
			to: models.EditStateEmpty, allowed: true,
		},
		{
			from: models.EditStateEditingExisting, operation: models.EditOperationSaved,
			to: models.EditStateEmpty, allowed: true,
		},
		{
			from: models.EditStateEditingExisting, operation: models.EditOperationStartNew,
			to: models.EditStateEditingNew, allowed: true,
		},
		{
			from: models.EditStateEditingNew, operation: models.EditOperationSaved,
			to: models.EditStateEmpty, allowed: true,
		},
		{
			from: models.EditStateEditingNew, operation: models.EditOperationSelect,
			to: models.EditStateEditingExisting, allowed: true,
		},
		{from: models.EditStateEditingNew, operation: models.EditOperationDeleted},
		{from: models.EditStateEditingNew, operation: "ARCHIVED"},
		{from: "UNKNOWN", operation: models.EditOperationClear},
	}

	for idx, oneTest := range testCases {
		next, err := oneTest.from.NextState(oneTest.operation)
		if oneTest.allowed {
			assert.Nilf(err, "case %d", idx)
			assert.Equalf(oneTest.to, next, "case %d", idx)
		} else {
			assert.NotNilf(err, "case %d", idx)
			assert.Equalf(oneTest.from, next, "case %d", idx)
		}
	}
}

func TestRecordHelpers(t *testing.T) {
	assert := assert.New(t)

	record := models.NewRecord("category")
	assert.True(record.IsNew())
	assert.Empty(record.AttachmentDataURI())
	assert.Empty(record.Field("name"))
	record.Attachment = []byte{}
	assert.Empty(record.AttachmentDataURI())

	record.Fields["name"] = "Widgets"
	record.Attachment = []byte{0x42, 0x42, 0x42}
	assert.Equal("data:image;base64,QkJC", record.AttachmentDataURI())

	clone := record.Clone()
	clone.Fields["name"] = "Gadgets"
	clone.Attachment[0] = 0x00
	assert.Equal("Widgets", record.Fields["name"])
	assert.Equal(byte(0x42), record.Attachment[0])

	request := models.PageRequest{PageIndex: 3, PageSize: 20}
	assert.Equal(60, request.Offset())
}

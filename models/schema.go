package models

// FieldTypeENUMType schema field type ENUM value type
type FieldTypeENUMType string

const (
	// FieldTypeText free form text
	FieldTypeText FieldTypeENUMType = "TEXT"
	// FieldTypeInteger non-negative whole number text
	FieldTypeInteger FieldTypeENUMType = "INTEGER"
	// FieldTypeDecimal decimal number text
	FieldTypeDecimal FieldTypeENUMType = "DECIMAL"
	// FieldTypeDate calendar date text in YYYY-MM-DD
	FieldTypeDate FieldTypeENUMType = "DATE"
)

// DateFieldLayout layout of DATE field values
const DateFieldLayout = "2006-01-02"

// MaxAttachmentBytes upper bound on the attachment payload size
const MaxAttachmentBytes = 1000000

// BaseRule the validation rule implied by the field type
func (t FieldTypeENUMType) BaseRule() string {
	switch t {
	case FieldTypeInteger:
		return "omitempty,number"
	case FieldTypeDecimal:
		return "omitempty,numeric"
	case FieldTypeDate:
		return "omitempty,datetime=" + DateFieldLayout
	}
	return ""
}

// Numeric whether values of this type sort numerically
func (t FieldTypeENUMType) Numeric() bool {
	return t == FieldTypeInteger || t == FieldTypeDecimal
}

// FieldSchema one scalar field of an entity
type FieldSchema struct {
	// Name field name, used as form key and storage key
	Name string `json:"name" validate:"required,field_name"`
	// Label human readable field label
	Label string `json:"label" validate:"required"`
	// Type field value type
	Type FieldTypeENUMType `json:"type" validate:"required,field_type"`
	// Rule go-playground/validator rule applied on top of the type rule
	Rule string `json:"rule,omitempty"`
	// Sortable whether the list view can sort by this field
	Sortable bool `json:"sortable"`
}

// AttachmentSchema the binary attachment field of an entity
type AttachmentSchema struct {
	// Name attachment field name
	Name string `json:"name" validate:"required,field_name"`
	// Label human readable attachment label
	Label string `json:"label" validate:"required"`
	// MaxBytes upper bound on the payload size
	MaxBytes int `json:"max_bytes" validate:"required,gt=0,lte=1000000"`
}

// EntitySchema declarative description of one entity kind
type EntitySchema struct {
	// Kind entity kind. Also the base route segment.
	Kind string `json:"kind" validate:"required,entity_kind"`
	// Title human readable entity title
	Title string `json:"title" validate:"required"`
	// Fields ordered scalar fields
	Fields []FieldSchema `json:"fields" validate:"required,min=1,unique=Name,dive"`
	// Attachment optional binary attachment field
	Attachment *AttachmentSchema `json:"attachment,omitempty" validate:"omitempty"`
}

// Field lookup a field by name
func (s EntitySchema) Field(name string) (FieldSchema, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSchema{}, false
}

// FieldNames the ordered field names
func (s EntitySchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		names = append(names, field.Name)
	}
	return names
}

// AttachmentLimit the maximum attachment payload size, zero if attachments not supported
func (s EntitySchema) AttachmentLimit() int {
	if s.Attachment == nil {
		return 0
	}
	return s.Attachment.MaxBytes
}

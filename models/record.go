package models

import (
	"encoding/base64"
	"time"
)

// AttachmentDataURIPrefix prefix of an attachment rendered as a data URI
const AttachmentDataURIPrefix = "data:image;base64,"

// Record one catalog entity instance
//
// A record without an ID has never been persisted. Version is assigned by the persistence
// layer and is only ever compared for equality.
type Record struct {
	// ID record ID. Empty before the first save.
	ID string `json:"id,omitempty" validate:"omitempty,ulid"`

	// Kind the entity kind this record belongs to
	Kind string `json:"kind" validate:"required,entity_kind"`

	// Version optimistic locking version token. Zero before the first save.
	Version int64 `json:"version" validate:"gte=0"`

	// Fields scalar field values keyed by schema field name
	Fields map[string]string `json:"fields"`

	// Attachment the binary attachment payload
	Attachment []byte `json:"-" validate:"max=1000000"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord define a transient record of a kind
func NewRecord(kind string) Record {
	return Record{Kind: kind, Fields: map[string]string{}}
}

// IsNew whether the record has not been persisted yet
func (r Record) IsNew() bool {
	return r.ID == ""
}

// Field read one field value
func (r Record) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Clone deep copy of the record
func (r Record) Clone() Record {
	dup := r
	dup.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		dup.Fields[k] = v
	}
	if r.Attachment != nil {
		dup.Attachment = append([]byte(nil), r.Attachment...)
	}
	return dup
}

// AttachmentDataURI render the attachment as a data URI, or empty string if none
func (r Record) AttachmentDataURI() string {
	return AttachmentDataURI(r.Attachment)
}

/*
AttachmentDataURI render an attachment payload as a data URI

	@param payload []byte - the attachment payload
	@returns "data:image;base64,<payload>", or empty string when there is no payload
*/
func AttachmentDataURI(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	return AttachmentDataURIPrefix + base64.StdEncoding.EncodeToString(payload)
}

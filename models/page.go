package models

// SortDirectionENUMType list sort direction ENUM value type
type SortDirectionENUMType string

const (
	// SortAscending ascending order
	SortAscending SortDirectionENUMType = "ASC"
	// SortDescending descending order
	SortDescending SortDirectionENUMType = "DESC"
)

// SortOrder one list sort key
type SortOrder struct {
	// Field schema field to sort by
	Field string `json:"field" validate:"required,field_name"`
	// Direction sort direction
	Direction SortDirectionENUMType `json:"direction" validate:"required,sort_direction"`
}

// RecordFilter optional list predicate: field value contains the text, case-insensitive
type RecordFilter struct {
	// Field schema field to match against
	Field string `json:"field" validate:"required,field_name"`
	// Contains the text to look for
	Contains string `json:"contains" validate:"required"`
}

// PageRequest one list window request
type PageRequest struct {
	// PageIndex zero based page index
	PageIndex int `json:"page" validate:"gte=0"`
	// PageSize records per page
	PageSize int `json:"size" validate:"gt=0,lte=500"`
	// Sort ordered sort keys
	Sort []SortOrder `json:"sort,omitempty" validate:"omitempty,dive"`
	// Filter optional predicate
	Filter *RecordFilter `json:"filter,omitempty" validate:"omitempty"`
}

// Offset the record offset of the first entry in the page
func (r PageRequest) Offset() int {
	return r.PageIndex * r.PageSize
}

// Page one window of list results
type Page struct {
	// Request the request which produced this page
	Request PageRequest `json:"request"`
	// Items the records in the window
	Items []Record `json:"items"`
	// TotalKnown whether the total size of the data set is known
	TotalKnown bool `json:"total_known"`
	// Total the data set size, only meaningful when TotalKnown
	Total int64 `json:"total"`
}

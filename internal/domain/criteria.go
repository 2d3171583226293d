package domain

import "fmt"

// Canonical field names accepted in filter[...] and sort parameters.
const (
	FieldID         = "id"
	FieldType       = "type"
	FieldBrand      = "brand"
	FieldModel      = "model"
	FieldColor      = "color"
	FieldSerial     = "serial"
	FieldOwnerID    = "ownerId"
	FieldOwnerName  = "ownerName"
	FieldCheckinAt  = "checkinAt"
	FieldCheckoutAt = "checkoutAt"
	FieldUpdatedAt  = "updatedAt"
)

type FilterQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type SortQuery struct {
	Field       string `json:"field"`
	IsAscending bool   `json:"isAscending"`
}

// DeviceCriteria is the filter/sort/search/pagination shape shared by every
// device listing. Only one filter pair and one sort key are supported.
type DeviceCriteria struct {
	FilterBy *FilterQuery `json:"filterBy,omitempty"`
	SortBy   *SortQuery   `json:"sortBy,omitempty"`
	Search   *string      `json:"search,omitempty"`
	Limit    *int         `json:"limit,omitempty"`
	Offset   *int         `json:"offset,omitempty"`

	// Malformed lists numeric parameters that were present but not integers.
	Malformed []string `json:"-"`
}

// Validate rejects malformed or negative pagination values.
func (c DeviceCriteria) Validate() error {
	if len(c.Malformed) > 0 {
		return fmt.Errorf("%w: %s must be an integer", ErrInvalidInput, c.Malformed[0])
	}
	if c.Limit != nil && *c.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}
	if c.Offset != nil && *c.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}
	return nil
}

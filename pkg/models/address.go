package models

import "time"

// Address is the full address entity a property may reference. The property
// keeps a denormalized snapshot of the matching-relevant fields; the join is
// preferred when the reference is present.
type Address struct {
	ID          string   `json:"id" db:"id"`
	TenantID    string   `json:"tenant_id" db:"tenant_id"`
	State       *string  `json:"state,omitempty" db:"state"`
	City        *string  `json:"city,omitempty" db:"city"`
	Locality    *string  `json:"locality,omitempty" db:"locality"`
	Pincode     *string  `json:"pincode,omitempty" db:"pincode"`
	FullAddress *string  `json:"full_address,omitempty" db:"full_address"`
	Lng         *float64 `json:"lng,omitempty" db:"lng"`
	Lat         *float64 `json:"lat,omitempty" db:"lat"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Snapshot projects the address into the denormalized form cached on
// properties.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		City:     a.City,
		Locality: a.Locality,
		State:    a.State,
	}
}

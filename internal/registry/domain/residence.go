package registry

import "errors"

// ErrEmptyResidenceID is returned when a residence has no id.
var ErrEmptyResidenceID = errors.New("registry: empty residence id")

// Residence is one roster entry: a flat and its current owner. The roster is
// maintained elsewhere; billing only reads it.
type Residence struct {
	ID        string
	Building  string
	Floor     string
	FlatLabel string
	OwnerName string
	Phone     string
	Active    bool
}

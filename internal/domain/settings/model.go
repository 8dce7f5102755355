package settings

import "time"

// Entry is one admin-managed configuration record, e.g. commission rates or
// exchange margins. Data is an opaque document owned by the admin screens.
type Entry struct {
	Type      string
	Data      map[string]interface{}
	UpdatedAt time.Time
}

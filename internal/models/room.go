package models

import (
	"time"

	"github.com/lib/pq"
)

// Room is a teaching room with its installed resources.
type Room struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Computers int            `db:"computers" json:"computers"`
	Equipment pq.StringArray `db:"equipment" json:"equipment"`
	Software  pq.StringArray `db:"software" json:"software"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// HasEquipment reports whether every required item is installed.
func (r *Room) HasEquipment(required []string) bool {
	return containsAll(r.Equipment, required)
}

// HasSoftware reports whether every required package is installed.
func (r *Room) HasSoftware(required []string) bool {
	return containsAll(r.Software, required)
}

func containsAll(available pq.StringArray, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(available))
	for _, item := range available {
		set[item] = struct{}{}
	}
	for _, item := range required {
		if _, ok := set[item]; !ok {
			return false
		}
	}
	return true
}

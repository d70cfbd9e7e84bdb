package model

import "time"

// OpeningHours is a same-day window, "HH:MM" local wall-clock.
type OpeningHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type Merchant struct {
	ID           uint64       `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Logo         string       `json:"logo"`
	OpeningHours OpeningHours `json:"opening_hours"`
	LastModified time.Time    `json:"last_modified"`
}

type Settings struct {
	IsOpen       bool      `json:"is_open"`
	LastModified time.Time `json:"last_modified"`
}

package models

import "time"

// Contact is a verified visitor captured as a sales lead.
type Contact struct {
	ID        string
	Email     string
	Brand     string
	Domain    string
	DocID     string
	CreatedAt time.Time
}

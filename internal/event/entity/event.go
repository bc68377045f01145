package entity

import "time"

// Event is a user-owned event record. ImageUploaded marks Image as a file the
// upload store saved for this event; client-supplied references are never removed.
type Event struct {
	ID            string    `db:"id" json:"id"`
	OwnerID       int64     `db:"owner_id" json:"owner_id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Address       string    `db:"address" json:"address"`
	Date          time.Time `db:"date" json:"date"`
	Image         *string   `db:"image" json:"image"`
	ImageUploaded bool      `db:"image_uploaded" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

package models

import "time"

// User is an authenticated account. The id is the identity provider's subject.
type User struct {
	ID              string    `db:"id" json:"id"`
	Email           *string   `db:"email" json:"email"`
	FirstName       *string   `db:"first_name" json:"firstName"`
	LastName        *string   `db:"last_name" json:"lastName"`
	ProfileImageURL *string   `db:"profile_image_url" json:"profileImageUrl"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

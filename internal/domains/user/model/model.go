package model

import "lodge/shared/model"

const (
	TableName  = "users"
	EntityName = "user"

	FieldID        = "id"
	FieldEmail     = "email"
	FieldRole      = "role"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldPhone     = "phone"
)

// User is owned by the identity service; this module only reads it.
type User struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Role      string `db:"role"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Phone     string `db:"phone"`
	model.Metadata
}

// Contact is the customer snapshot copied into holds and bookings.
type Contact struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

func (u User) Contact() Contact {
	return Contact{
		UserID: u.ID,
		Name:   u.FirstName + " " + u.LastName,
		Email:  u.Email,
		Phone:  u.Phone,
	}
}

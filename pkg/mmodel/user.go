package mmodel

import "time"

// User is a struct designed to encapsulate response payload data.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

package mmodel

import "time"

// CreateOrganizationInput is a struct design to encapsulate request create payload data.
type CreateOrganizationInput struct {
	Name string `json:"name" validate:"required,max=256"`
}

// Organization is a struct designed to encapsulate response payload data.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InviteMemberInput is a struct design to encapsulate request payload data
// for adding a membership to an organization.
type InviteMemberInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=member admin owner"`
}

// Membership is a struct designed to encapsulate response payload data.
type Membership struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	Role           string `json:"role"`
}

type Organizations struct {
	Items []Organization `json:"items"`
}

type Memberships struct {
	Items []Membership `json:"items"`
}

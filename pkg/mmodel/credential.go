package mmodel

// CreateCredentialInput is a struct design to encapsulate request create
// payload data. Fields are handed to the credential service for
// encryption and never persisted by the caller in plaintext.
type CreateCredentialInput struct {
	SourceKind string            `json:"sourceKind" validate:"required,max=128"`
	AuthMethod string            `json:"authMethod" validate:"required,oneof=oauth2 api_key"`
	Fields     map[string]string `json:"fields" validate:"required"`
}

// Credential is a struct designed to encapsulate response payload data.
// Ciphertext never crosses this boundary.
type Credential struct {
	ID         string `json:"id"`
	SourceKind string `json:"sourceKind"`
	AuthMethod string `json:"authMethod"`
}

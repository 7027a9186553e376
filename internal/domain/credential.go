package domain

import "time"

// IntegrationCredential is an encrypted credential blob plus its auth
// method tag. The Ciphertext is never serialized outside the organization
// boundary and is decrypted on demand by the credential service; core
// components must not cache the decrypted form beyond the duration of one
// sync job.
type IntegrationCredential struct {
	ID             string
	OrganizationID string
	SourceKind     string
	AuthMethod     AuthMethod
	Ciphertext     []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DecryptedCredential is the short-lived plaintext form, held only for the
// duration of one sync job.
type DecryptedCredential struct {
	SourceKind string
	AuthMethod AuthMethod
	Fields     map[string]string
}

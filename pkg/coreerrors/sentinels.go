package coreerrors

import "errors"

// Sentinel business errors returned by the domain layer before being mapped
// to their typed, client-facing form by ValidateBusinessError.
var (
	ErrEntityNotFound      = errors.New("entity_not_found")
	ErrCollectionEmpty     = errors.New("collection_empty")
	ErrSyncAlreadyRunning  = errors.New("sync_already_running")
	ErrInvalidCursor       = errors.New("invalid_cursor")
	ErrAdminRoleRequired   = errors.New("admin_role_required")
	ErrAPIKeyAuthForbidden = errors.New("api_key_auth_forbidden")
	ErrJobNotCancellable   = errors.New("job_not_cancellable")
)
</content>

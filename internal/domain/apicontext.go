package domain

import "github.com/airweave-ai/ingestion-core/internal/platform/mlog"

// AuthMethod is the wire tag identifying how an ApiContext's caller
// authenticated.
type AuthMethod string

const (
	AuthMethodSystem         AuthMethod = "system"
	AuthMethodAPIKey         AuthMethod = "api_key"
	AuthMethodAuth0          AuthMethod = "auth0"
	AuthMethodInternalSystem AuthMethod = "internal_system"
)

// ApiContext is the authorization capability passed to every core
// operation: a resolved organization, an optional acting user, the auth
// method used, and a request-scoped logger.
type ApiContext struct {
	RequestID      string
	AuthMethod     AuthMethod
	Organization   Organization
	User           *User
	MembershipRole Role
	Logger         mlog.Logger
}

// IsAPIKeyAuth reports whether this request authenticated via an api key.
// Administrative operations must refuse api-key auth.
func (c ApiContext) IsAPIKeyAuth() bool {
	return c.AuthMethod == AuthMethodAPIKey
}

// IsUserAuth reports whether this request is bound to an acting user
// (auth0 or internal-system impersonation of a user).
func (c ApiContext) IsUserAuth() bool {
	return c.User != nil
}

// HasRole reports whether the acting membership meets min. API-key and
// system contexts carry no membership role and always fail this check.
func (c ApiContext) HasRole(min Role) bool {
	if !c.IsUserAuth() {
		return false
	}
	return c.MembershipRole.AtLeast(min)
}

// Serialize reduces the context to a plain map suitable for crossing a
// process boundary (e.g. handing off to a workflow worker), carrying no
// logger or other unserializable state.
func (c ApiContext) Serialize() map[string]any {
	out := map[string]any{
		"request_id":      c.RequestID,
		"auth_method":     string(c.AuthMethod),
		"organization_id": c.Organization.ID,
	}

	if c.User != nil {
		out["user_id"] = c.User.ID
		out["membership_role"] = string(c.MembershipRole)
	}

	return out
}

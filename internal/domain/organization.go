// Package domain holds the core entities of the ingestion control plane:
// organizations, users, collections, source connections, syncs, sync jobs,
// entities and their records, credentials, usage ledgers, and domain events.
//
// Cross-references between aggregates (Organization <-> User, Sync <->
// SyncJob) are stored as ids on both sides and joined explicitly; no type
// in this package holds an owning pointer to another, so the graph never
// becomes cyclic.
package domain

import "time"

// BillingPlan describes the rate-limiter and quota parameters attached to
// an Organization.
type BillingPlan struct {
	Name            string
	RateLimitWindow time.Duration
	RateLimitQuota  int64
	UsageLimits     map[UsageAction]int64
}

// Organization is the tenant boundary. Every core operation is scoped to
// exactly one organization.
type Organization struct {
	ID        string
	Name      string
	Plan      *BillingPlan
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is a membership's privilege level within an organization, ordered
// member < admin < owner.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRank = map[Role]int{
	RoleMember: 0,
	RoleAdmin:  1,
	RoleOwner:  2,
}

// AtLeast reports whether r meets or exceeds the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// User is an optional actor identified by email and an external identity id.
type User struct {
	ID                 string
	Email              string
	ExternalIdentityID string
	CreatedAt          time.Time
}

// Membership joins a User to an Organization with a Role. Stored as an
// explicit join so Organization and User never hold owning references to
// one another.
type Membership struct {
	OrganizationID string
	UserID         string
	Role           Role
}

package domain

import "time"

// UsageAction is an append-only counter type tracked per organization.
type UsageAction string

const (
	UsageActionEntities          UsageAction = "entities"
	UsageActionQueries           UsageAction = "queries"
	UsageActionSourceConnections UsageAction = "source_connections"
	UsageActionTeamMembers       UsageAction = "team_members"
)

// UsageLedgerEntry is one persisted, append-only counter row.
type UsageLedgerEntry struct {
	OrganizationID string
	Action         UsageAction
	Delta          int64
	RecordedAt     time.Time
}

// UsageLedgerTotals is the materialized view the guardrail checks quotas
// against: current counter value per action type for one organization.
type UsageLedgerTotals struct {
	OrganizationID string
	Totals         map[UsageAction]int64
}

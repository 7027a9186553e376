package mmodel

// UsageTotals is a struct designed to encapsulate response payload data
// for an organization's current quota counters.
type UsageTotals struct {
	OrganizationID string           `json:"organizationId"`
	Totals         map[string]int64 `json:"totals"`
}

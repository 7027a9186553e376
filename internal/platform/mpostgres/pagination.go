package mpostgres

// Pagination encapsulates a paginated list response payload.
type Pagination struct {
	Items any `json:"items"`
	Page  int `json:"page" example:"1"`
	Limit int `json:"limit" example:"10"`
}

// SetItems assigns the page of items being returned.
func (p *Pagination) SetItems(items any) {
	p.Items = items
}
</content>

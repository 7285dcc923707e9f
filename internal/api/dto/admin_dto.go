package dto

// BulkAssignRequest payload. The ticket id list is checked by the service so
// that a missing or empty list yields one message.
type BulkAssignRequest struct {
	TicketIDs    []string `json:"ticketIds"`
	TechnicianID string   `json:"technicianId"`
}

// BulkStatusRequest payload.
type BulkStatusRequest struct {
	TicketIDs []string `json:"ticketIds"`
	Status    string   `json:"status"`
}

// BulkResponse reports how many tickets matched and changed.
type BulkResponse struct {
	Matched  int `json:"matched"`
	Modified int `json:"modified"`
}

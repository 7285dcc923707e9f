package domain

import "time"

// Comment is a note attached to a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time

	Author *UserRef
}

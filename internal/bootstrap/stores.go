// Package bootstrap selects the storage backend shared by the server and CLI.
package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

// Repositories bundles every store the services depend on.
type Repositories struct {
	Users    repository.UserRepository
	Tickets  repository.TicketRepository
	Comments repository.CommentRepository
	History  repository.TicketHistoryRepository
}

// NewRepositories returns Postgres-backed stores when pool is non-nil and a
// fresh in-memory store otherwise.
func NewRepositories(pool *pgxpool.Pool) Repositories {
	if pool == nil {
		store := memory.NewStore()
		return Repositories{
			Users:    store.Users(),
			Tickets:  store.Tickets(),
			Comments: store.Comments(),
			History:  store.History(),
		}
	}
	return Repositories{
		Users:    repository.NewUserRepository(pool),
		Tickets:  repository.NewTicketRepository(pool),
		Comments: repository.NewCommentRepository(pool),
		History:  repository.NewTicketHistoryRepository(pool),
	}
}

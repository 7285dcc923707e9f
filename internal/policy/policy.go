// Package policy decides whether a caller may perform an action on a
// resource. Evaluate is pure: callers load the resource first, so a missing
// record is reported as not found before any permission check runs.
package policy

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionCreateTicket   Action = "ticket:create"
	ActionListTickets    Action = "ticket:list"
	ActionViewTicket     Action = "ticket:view"
	ActionEditTicketCore Action = "ticket:edit"
	ActionChangeStatus   Action = "ticket:status"
	ActionChangeAssignee Action = "ticket:assign"
	ActionDeleteTicket   Action = "ticket:delete"
	ActionViewHistory    Action = "ticket:history"
	ActionBulkOperate    Action = "ticket:bulk"
	ActionViewReports    Action = "report:generate"
	ActionViewWorkload   Action = "report:workload"
	ActionEditComment    Action = "comment:edit"
	ActionDeleteComment  Action = "comment:delete"
	ActionListUsers      Action = "user:list"
	ActionViewUser       Action = "user:view"
	ActionEditProfile    Action = "user:edit"
	ActionManageUser     Action = "user:manage"
)

// Subject is the authenticated caller.
type Subject struct {
	ID   string
	Role domain.Role
}

// SubjectOf builds a Subject from a user record.
func SubjectOf(u *domain.User) Subject {
	if u == nil {
		return Subject{}
	}
	return Subject{ID: u.ID, Role: u.Role}
}

// Resource carries the ownership fields of the target. OwnerID is the ticket
// creator, the comment author or the user record itself. TargetID is the user
// an assignment would hand the ticket to.
type Resource struct {
	OwnerID    string
	AssigneeID string
	Status     domain.TicketStatus
	TargetID   string
}

// TicketResource projects a ticket onto a Resource.
func TicketResource(t *domain.Ticket) Resource {
	res := Resource{OwnerID: t.CreatedBy, Status: t.Status}
	if t.AssignedTo != nil {
		res.AssigneeID = *t.AssignedTo
	}
	return res
}

// Decision is the outcome of Evaluate. Reason is set on denials.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

const insufficient = "Insufficient permissions"

// Evaluate applies the role matrix.
func Evaluate(s Subject, action Action, res Resource) Decision {
	if s.ID == "" || !s.Role.Valid() {
		return deny(insufficient)
	}
	admin := s.Role == domain.RoleAdmin
	staff := s.Role.IsStaff()
	owner := res.OwnerID != "" && res.OwnerID == s.ID

	switch action {
	case ActionCreateTicket, ActionListTickets:
		return allow()

	case ActionViewTicket:
		if staff || owner {
			return allow()
		}
		return deny("Not authorized to view this ticket")

	case ActionEditTicketCore:
		if staff {
			return allow()
		}
		if !owner {
			return deny("Not authorized")
		}
		if res.Status != domain.TicketStatusOpen {
			return deny("Cannot edit ticket after it is processed")
		}
		return allow()

	case ActionChangeStatus, ActionViewHistory, ActionViewWorkload:
		if staff {
			return allow()
		}
		return deny(insufficient)

	case ActionChangeAssignee:
		switch {
		case admin:
			return allow()
		case s.Role == domain.RoleTechnician && res.TargetID == s.ID:
			return allow()
		case s.Role == domain.RoleTechnician:
			return deny("Technicians can only assign tickets to themselves")
		}
		return deny(insufficient)

	case ActionEditComment:
		if admin || owner {
			return allow()
		}
		return deny("Not authorized to update this comment")

	case ActionDeleteComment:
		if admin || owner {
			return allow()
		}
		return deny("Not authorized to delete this comment")

	case ActionViewUser:
		if admin || owner {
			return allow()
		}
		return deny("Not authorized to view this profile")

	case ActionEditProfile:
		if admin || owner {
			return allow()
		}
		return deny("Not authorized to update this profile")

	case ActionManageUser:
		if admin {
			return allow()
		}
		return deny("Not authorized to update restricted fields")

	case ActionDeleteTicket, ActionBulkOperate, ActionViewReports, ActionListUsers:
		if admin {
			return allow()
		}
		return deny(insufficient)
	}
	return deny(insufficient)
}

// Authorize returns a Forbidden error when Evaluate denies.
func Authorize(s Subject, action Action, res Resource) error {
	if d := Evaluate(s, action, res); !d.Allowed {
		return apperrors.NewForbidden(d.Reason)
	}
	return nil
}

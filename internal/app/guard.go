package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/NatDug/Field-Buddy/internal/repository"
)

const (
	PageDashboard = "dashboard"
	PageCrops     = "crops"
	PageTasks     = "tasks"
	PageExpenses  = "expenses"
	PageInventory = "inventory"
	PageDocuments = "documents"
	PageAlerts    = "alerts"
	PageReports   = "reports"
	PageProfile   = "profile"
)

// Pages is the fixed set of pages a team permission can name.
var Pages = []string{
	PageDashboard,
	PageCrops,
	PageTasks,
	PageExpenses,
	PageInventory,
	PageDocuments,
	PageAlerts,
	PageReports,
	PageProfile,
}

func ValidPage(page string) bool {
	return slices.Contains(Pages, page)
}

type actorKey struct{}

// WithActor marks ctx as acting on behalf of a team member. Service calls on
// that context are checked against the member's permissions.
func WithActor(ctx context.Context, memberID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, memberID)
}

func ActorFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok
}

// DefaultPermission is what a member gets on a page with no stored row.
func DefaultPermission(memberID int64, page string) repository.Permission {
	return repository.Permission{
		MemberID:  memberID,
		Page:      page,
		CanRead:   true,
		CanWrite:  false,
		DataScope: repository.DefaultDataScope,
	}
}

// Guard enforces page permissions for the acting member. Calls without an
// actor are the farm owner and always pass.
type Guard struct {
	team  repository.TeamRepository
	perms repository.PermissionRepository
}

func NewGuard(team repository.TeamRepository, perms repository.PermissionRepository) *Guard {
	return &Guard{team: team, perms: perms}
}

func (g *Guard) Read(ctx context.Context, page string) error {
	return g.check(ctx, page, false)
}

func (g *Guard) Write(ctx context.Context, page string) error {
	return g.check(ctx, page, true)
}

func (g *Guard) check(ctx context.Context, page string, write bool) error {
	if g == nil {
		return nil
	}
	memberID, ok := ActorFrom(ctx)
	if !ok {
		return nil
	}

	if _, err := g.team.Get(ctx, memberID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: team member %d does not exist", ErrPermissionDenied, memberID)
		}
		return fmt.Errorf("check permission: %w", err)
	}

	perm := DefaultPermission(memberID, page)
	stored, err := g.perms.Get(ctx, memberID, page)
	switch {
	case err == nil:
		perm = *stored
	case !isNotFound(err):
		return fmt.Errorf("check permission: %w", err)
	}

	if write && !perm.CanWrite {
		return fmt.Errorf("%w: member %d cannot write %s", ErrPermissionDenied, memberID, page)
	}
	if !write && !perm.CanRead {
		return fmt.Errorf("%w: member %d cannot read %s", ErrPermissionDenied, memberID, page)
	}
	return nil
}

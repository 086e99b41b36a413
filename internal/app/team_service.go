package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/NatDug/Field-Buddy/internal/repository"
)

type AddMemberRequest struct {
	Name  string
	Email string
	Phone string
	Role  string
}

type SetPermissionRequest struct {
	MemberID  int64
	Page      string
	CanRead   bool
	CanWrite  bool
	DataScope string
}

// TeamService manages members and their page permissions. Both need write
// access to the profile page.
type TeamService struct {
	team  repository.TeamRepository
	perms repository.PermissionRepository
	guard *Guard
}

func NewTeamService(team repository.TeamRepository, perms repository.PermissionRepository, guard *Guard) *TeamService {
	return &TeamService{team: team, perms: perms, guard: guard}
}

func (s *TeamService) List(ctx context.Context) ([]repository.TeamMember, error) {
	if err := s.guard.Read(ctx, PageProfile); err != nil {
		return nil, err
	}
	return s.team.List(ctx)
}

func (s *TeamService) Add(ctx context.Context, req AddMemberRequest) (*repository.TeamMember, error) {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("member name is required")
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, validationf("invalid email %q", email)
	}
	member := &repository.TeamMember{
		Name:  name,
		Email: email,
		Phone: strings.TrimSpace(req.Phone),
		Role:  strings.TrimSpace(req.Role),
	}
	if err := s.team.Add(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// Remove deletes the member. Stored permission rows stay behind and are
// ignored once the member is gone.
func (s *TeamService) Remove(ctx context.Context, id int64) error {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return err
	}
	return s.team.Delete(ctx, id)
}

// Permissions returns one entry per page, filling defaults for pages with no
// stored row.
func (s *TeamService) Permissions(ctx context.Context, memberID int64) ([]repository.Permission, error) {
	if err := s.guard.Read(ctx, PageProfile); err != nil {
		return nil, err
	}
	if _, err := s.team.Get(ctx, memberID); err != nil {
		return nil, err
	}
	stored, err := s.perms.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	byPage := make(map[string]repository.Permission, len(stored))
	for _, p := range stored {
		byPage[p.Page] = p
	}

	out := make([]repository.Permission, 0, len(Pages))
	for _, page := range Pages {
		if p, ok := byPage[page]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, DefaultPermission(memberID, page))
	}
	return out, nil
}

func (s *TeamService) SetPermission(ctx context.Context, req SetPermissionRequest) (*repository.Permission, error) {
	if err := s.guard.Write(ctx, PageProfile); err != nil {
		return nil, err
	}
	if !ValidPage(req.Page) {
		return nil, validationf("unknown page %q (want one of %s)", req.Page, strings.Join(Pages, ", "))
	}
	if _, err := s.team.Get(ctx, req.MemberID); err != nil {
		if isNotFound(err) {
			return nil, validationf("team member %d does not exist", req.MemberID)
		}
		return nil, fmt.Errorf("set permission: %w", err)
	}

	perm := &repository.Permission{
		MemberID:  req.MemberID,
		Page:      req.Page,
		CanRead:   req.CanRead,
		CanWrite:  req.CanWrite,
		DataScope: strings.TrimSpace(req.DataScope),
	}
	if err := s.perms.Set(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

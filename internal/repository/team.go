package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	tableTeamMembers = "team_members"
	tablePermissions = "permissions"
)

type teamRepository struct {
	exec storage.Executor
}

func (r *teamRepository) List(ctx context.Context) ([]TeamMember, error) {
	members, err := selectAll(ctx, r.exec, storage.Select(tableTeamMembers).OrderedBy("name", false).OrderedBy("id", false), decodeTeamMember)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

func (r *teamRepository) Get(ctx context.Context, id int64) (*TeamMember, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableTeamMembers, storage.ByID(id)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get team member: %w", err)
	}
	member, err := decodeTeamMember(row)
	if err != nil {
		return nil, fmt.Errorf("get team member: %w", err)
	}
	return member, nil
}

func (r *teamRepository) Add(ctx context.Context, member *TeamMember) error {
	if member == nil {
		return fmt.Errorf("add team member: member is nil")
	}
	if member.Name == "" {
		return fmt.Errorf("add team member: name is required")
	}
	if member.Role == "" {
		member.Role = DefaultRole
	}
	member.CreatedAt = nowUTC()

	res, err := r.exec.Exec(ctx, storage.Insert(tableTeamMembers,
		storage.Set("name", member.Name),
		storage.Set("email", nullable(member.Email)),
		storage.Set("phone", nullable(member.Phone)),
		storage.Set("role", member.Role),
		storage.Set("created_at", fmtTime(member.CreatedAt)),
	))
	if err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	member.ID = res.InsertID
	return nil
}

// Delete removes the member only; permission rows are left in place.
func (r *teamRepository) Delete(ctx context.Context, id int64) error {
	if err := deleteOne(ctx, r.exec, tableTeamMembers, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete team member: %w", err)
	}
	return nil
}

func decodeTeamMember(row storage.Row) (*TeamMember, error) {
	rr := read(row)
	member := &TeamMember{
		ID:        rr.int64("id"),
		Name:      rr.str("name"),
		Email:     rr.str("email"),
		Phone:     rr.str("phone"),
		Role:      rr.str("role"),
		CreatedAt: rr.time("created_at"),
	}
	if member.Role == "" {
		member.Role = DefaultRole
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode team member: %w", err)
	}
	return member, nil
}

// permissionRepository keys permissions on (member_id, page). Set reads the
// pair and then inserts or updates.
type permissionRepository struct {
	exec storage.Executor
}

func (r *permissionRepository) ListByMember(ctx context.Context, memberID int64) ([]Permission, error) {
	cmd := storage.Select(tablePermissions, storage.Eq("member_id", memberID)).OrderedBy("page", false)
	perms, err := selectAll(ctx, r.exec, cmd, decodePermission)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

func (r *permissionRepository) Get(ctx context.Context, memberID int64, page string) (*Permission, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tablePermissions, storage.Eq("member_id", memberID), storage.Eq("page", page)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get permission: %w", err)
	}
	perm, err := decodePermission(row)
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}
	return perm, nil
}

func (r *permissionRepository) Set(ctx context.Context, perm *Permission) error {
	if perm == nil {
		return fmt.Errorf("set permission: permission is nil")
	}
	if perm.Page == "" {
		return fmt.Errorf("set permission: page is required")
	}
	if perm.DataScope == "" {
		perm.DataScope = DefaultDataScope
	}

	existing, err := r.Get(ctx, perm.MemberID, perm.Page)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("set permission: %w", err)
	}

	perm.UpdatedAt = nowUTC()
	fields := []storage.Field{
		storage.Set("can_read", perm.CanRead),
		storage.Set("can_write", perm.CanWrite),
		storage.Set("data_scope", perm.DataScope),
		storage.Set("updated_at", fmtTime(perm.UpdatedAt)),
	}
	if existing == nil {
		fields = append([]storage.Field{
			storage.Set("member_id", perm.MemberID),
			storage.Set("page", perm.Page),
		}, fields...)
		res, err := r.exec.Exec(ctx, storage.Insert(tablePermissions, fields...))
		if err != nil {
			return fmt.Errorf("set permission: insert: %w", err)
		}
		perm.ID = res.InsertID
		return nil
	}

	perm.ID = existing.ID
	if _, err := r.exec.Exec(ctx, storage.UpdateByID(tablePermissions, existing.ID, fields...)); err != nil {
		return fmt.Errorf("set permission: update: %w", err)
	}
	return nil
}

func decodePermission(row storage.Row) (*Permission, error) {
	rr := read(row)
	perm := &Permission{
		ID:        rr.int64("id"),
		MemberID:  rr.int64("member_id"),
		Page:      rr.str("page"),
		CanRead:   rr.boolean("can_read", true),
		CanWrite:  rr.boolean("can_write", false),
		DataScope: rr.str("data_scope"),
		UpdatedAt: rr.time("updated_at"),
	}
	if perm.DataScope == "" {
		perm.DataScope = DefaultDataScope
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode permission: %w", err)
	}
	return perm, nil
}

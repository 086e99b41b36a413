package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	tableUsers   = "users"
	tableProfile = "profile"
)

type userRepository struct {
	exec storage.Executor
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("create user: user is nil")
	}
	if user.Name == "" {
		return fmt.Errorf("create user: name is required")
	}
	now := nowUTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.exec.Exec(ctx, storage.Insert(tableUsers,
		storage.Set("email", nullable(user.Email)),
		storage.Set("phone", nullable(user.Phone)),
		storage.Set("name", user.Name),
		storage.Set("provider", nullable(user.Provider)),
		storage.Set("provider_id", nullable(user.ProviderID)),
		storage.Set("avatar_url", nullable(user.AvatarURL)),
		storage.Set("is_active", user.Active),
		storage.Set("created_at", fmtTime(user.CreatedAt)),
		storage.Set("updated_at", fmtTime(user.UpdatedAt)),
	))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = res.InsertID
	return nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*User, error) {
	return r.findBy(ctx, "get user", storage.ByID(id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findBy(ctx, "find user by email", storage.Eq("email", email))
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return r.findBy(ctx, "find user by phone", storage.Eq("phone", phone))
}

func (r *userRepository) findBy(ctx context.Context, op string, pred storage.Predicate) (*User, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableUsers, pred))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := decodeUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("update user: user is nil")
	}
	user.UpdatedAt = nowUTC()
	err := updateOne(ctx, r.exec, storage.UpdateByID(tableUsers, user.ID,
		storage.Set("email", nullable(user.Email)),
		storage.Set("phone", nullable(user.Phone)),
		storage.Set("name", user.Name),
		storage.Set("provider", nullable(user.Provider)),
		storage.Set("provider_id", nullable(user.ProviderID)),
		storage.Set("avatar_url", nullable(user.AvatarURL)),
		storage.Set("is_active", user.Active),
		storage.Set("updated_at", fmtTime(user.UpdatedAt)),
	))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func decodeUser(row storage.Row) (*User, error) {
	rr := read(row)
	user := &User{
		ID:         rr.int64("id"),
		Email:      rr.str("email"),
		Phone:      rr.str("phone"),
		Name:       rr.str("name"),
		Provider:   rr.str("provider"),
		ProviderID: rr.str("provider_id"),
		AvatarURL:  rr.str("avatar_url"),
		Active:     rr.boolean("is_active", true),
		CreatedAt:  rr.time("created_at"),
		UpdatedAt:  rr.time("updated_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

// profileRepository keeps a single farm profile. Save is a read followed by
// an insert or an update, without a transaction around the pair.
type profileRepository struct {
	exec storage.Executor
}

func (r *profileRepository) Get(ctx context.Context) (*Profile, error) {
	row, err := selectOne(ctx, r.exec, storage.Select(tableProfile).OrderedBy("id", false))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile, err := decodeProfile(row)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) Save(ctx context.Context, profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("save profile: profile is nil")
	}

	existing, err := r.Get(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("save profile: %w", err)
	}

	now := nowUTC()
	profile.UpdatedAt = now
	fields := []storage.Field{
		storage.Set("user_id", profile.UserID),
		storage.Set("name", profile.Name),
		storage.Set("farm_name", profile.FarmName),
		storage.Set("location", nullable(profile.Location)),
		storage.Set("latitude", profile.Latitude),
		storage.Set("longitude", profile.Longitude),
		storage.Set("state", nullable(profile.State)),
		storage.Set("county", nullable(profile.County)),
		storage.Set("zip_code", nullable(profile.ZipCode)),
		storage.Set("address", nullable(profile.Address)),
		storage.Set("farm_type", nullable(profile.FarmType)),
		storage.Set("efficiency_score", profile.EfficiencyScore),
		storage.Set("usda_strata_id", nullable(profile.StrataID)),
		storage.Set("updated_at", fmtTime(now)),
	}

	if existing == nil {
		profile.CreatedAt = now
		fields = append(fields, storage.Set("created_at", fmtTime(now)))
		res, err := r.exec.Exec(ctx, storage.Insert(tableProfile, fields...))
		if err != nil {
			return fmt.Errorf("save profile: insert: %w", err)
		}
		profile.ID = res.InsertID
		return nil
	}

	profile.ID = existing.ID
	profile.CreatedAt = existing.CreatedAt
	if _, err := r.exec.Exec(ctx, storage.UpdateByID(tableProfile, existing.ID, fields...)); err != nil {
		return fmt.Errorf("save profile: update: %w", err)
	}
	return nil
}

func decodeProfile(row storage.Row) (*Profile, error) {
	rr := read(row)
	profile := &Profile{
		ID:              rr.int64("id"),
		UserID:          rr.optInt64("user_id"),
		Name:            rr.str("name"),
		FarmName:        rr.str("farm_name"),
		Location:        rr.str("location"),
		Latitude:        rr.optFloat("latitude"),
		Longitude:       rr.optFloat("longitude"),
		State:           rr.str("state"),
		County:          rr.str("county"),
		ZipCode:         rr.str("zip_code"),
		Address:         rr.str("address"),
		FarmType:        rr.str("farm_type"),
		EfficiencyScore: rr.optFloat("efficiency_score"),
		StrataID:        rr.str("usda_strata_id"),
		CreatedAt:       rr.time("created_at"),
		UpdatedAt:       rr.time("updated_at"),
	}
	if err := rr.err(); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

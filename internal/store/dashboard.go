package store

import (
	"context"
)

type DashboardStore struct {
	gw Gateway
}

func (s *DashboardStore) GroupedByClient(ctx context.Context) ([]ClientGroup, error) {
	var out []ClientGroup
	if err := s.gw.Call(ctx, ProcDashboardByClient, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type PermissionStore struct {
	gw Gateway
}

// ForUser resolves perfiles.rol_id and returns the role's permission names.
// A user without a profile or role has no permissions.
func (s *PermissionStore) ForUser(ctx context.Context, userID string) ([]string, error) {
	var profiles []Profile
	err := s.gw.Select(ctx, Query{
		Table:   TableProfiles,
		Filters: []Filter{Eq("id", userID)},
		Limit:   1,
	}, &profiles)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 || profiles[0].RoleID == nil {
		return nil, nil
	}

	var rows []RolePermission
	err = s.gw.Select(ctx, Query{
		Table:   TableRolePermissions,
		Filters: []Filter{Eq("rol_id", *profiles[0].RoleID)},
		Order:   []Order{{Column: "permiso"}},
	}, &rows)
	if err != nil {
		return nil, err
	}

	perms := make([]string, 0, len(rows))
	for _, r := range rows {
		perms = append(perms, r.Permission)
	}
	return perms, nil
}

package model

import "testing"

func TestRoleHierarchy(t *testing.T) {
	cases := []struct {
		role     UserRole
		required UserRole
		want     bool
	}{
		{RoleAdmin, RoleUser, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleModerator, RoleUser, true},
		{RoleModerator, RoleAdmin, false},
		{RoleUser, RoleUser, true},
		{RoleUser, RoleModerator, false},
		{UserRole("intern"), RoleUser, false},
	}
	for _, tc := range cases {
		if got := tc.role.HasPermission(tc.required); got != tc.want {
			t.Errorf("%s.HasPermission(%s) = %v, want %v", tc.role, tc.required, got, tc.want)
		}
	}
}

func TestPublicOmitsPasswordHash(t *testing.T) {
	u := &User{
		ID:           7,
		Email:        "jane@example.com",
		FirstName:    "Jane",
		LastName:     "Doe",
		PasswordHash: "$argon2id$...",
		Role:         RoleUser,
	}
	pub := u.Public()
	if pub.FullName != "Jane Doe" {
		t.Errorf("full name: got %q", pub.FullName)
	}
	if pub.ID != 7 || pub.Email != "jane@example.com" {
		t.Errorf("identity fields not copied: %+v", pub)
	}
}

func TestFullNameTrimsMissingParts(t *testing.T) {
	u := &User{FirstName: "Jane"}
	if got := u.FullName(); got != "Jane" {
		t.Errorf("got %q", got)
	}
}

// Copyright (c) 2026 Folio. All rights reserved.
// Author: dev@readfolio.app

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/readfolio/api/internal/platform/sec"
)

/*
TestUserRole_AtLeast verifies the role hierarchy (admin > staff > member).
*/
func TestUserRole_AtLeast(t *testing.T) {
	tests := []struct {
		name   string
		role   sec.UserRole
		target sec.UserRole
		want   bool
	}{
		{"admin_meets_staff", sec.RoleAdmin, sec.RoleStaff, true},
		{"admin_meets_admin", sec.RoleAdmin, sec.RoleAdmin, true},
		{"staff_meets_staff", sec.RoleStaff, sec.RoleStaff, true},
		{"staff_meets_member", sec.RoleStaff, sec.RoleMember, true},
		{"member_below_staff", sec.RoleMember, sec.RoleStaff, false},
		{"member_below_admin", sec.RoleMember, sec.RoleAdmin, false},
		{"unknown_below_member", sec.UserRole("ghost"), sec.RoleMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.target))
		})
	}
}

/*
TestHashPassword_RoundTrip verifies hashing and constant-time verification.
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, sec.CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, sec.CheckPasswordHash("wrong password", hash))
}

/*
TestSecureToken verifies randomness and deterministic hashing of opaque tokens.
*/
func TestSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	assert.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := sec.GenerateSecureToken(32)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The stored form is a deterministic hash of the issued token.
	assert.Equal(t, sec.HashToken(first), sec.HashToken(first))
	assert.NotEqual(t, sec.HashToken(first), sec.HashToken(second))
}

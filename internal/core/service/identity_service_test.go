package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/infrastructure/db/memory"
)

func TestIdentityService_SetApproval(t *testing.T) {
	store := memory.NewStore()
	slots := memory.NewSlots()
	registry := newTestRegistry(store, slots)
	svc := NewIdentityService(store.Identities(), registry, testAdminPhone, zerolog.Nop())
	ctx := context.Background()

	sid, member, _ := registry.Open(ctx, testPhone)

	updated, err := svc.SetApproval(ctx, domain.RoleAdmin, member.ID, true)
	if err != nil {
		t.Fatalf("SetApproval returned error: %v", err)
	}
	if !updated.Approved {
		t.Fatalf("expected approved identity")
	}
	live, _ := registry.Lookup(ctx, sid)
	if !live.Approved {
		t.Fatalf("live session should see the approval")
	}
}

func TestIdentityService_SetApproval_Rules(t *testing.T) {
	store := memory.NewStore()
	registry := newTestRegistry(store, memory.NewSlots())
	svc := NewIdentityService(store.Identities(), registry, testAdminPhone, zerolog.Nop())
	ctx := context.Background()

	_, member, _ := registry.Open(ctx, testPhone)
	_, admin, _ := registry.Open(ctx, testAdminPhone)

	tests := []struct {
		name     string
		actor    domain.Role
		id       string
		approved bool
		wantErr  error
	}{
		{"member cannot approve", domain.RoleMember, member.ID, true, domain.ErrForbidden},
		{"candidate cannot approve", domain.RoleCandidate, member.ID, true, domain.ErrForbidden},
		{"bootstrap admin stays approved", domain.RoleAdmin, admin.ID, false, domain.ErrForbidden},
		{"unknown identity", domain.RoleAdmin, "missing", true, domain.ErrIdentityNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SetApproval(ctx, tc.actor, tc.id, tc.approved); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

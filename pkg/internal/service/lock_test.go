package service

import (
	"errors"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/identity"
)

func TestSetLockToggle(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", true, identity.RoleUser)

	info, err := svc.SetLock(ctx, owner, f.ID, true)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	if !info.Locked {
		t.Fatal("expected file to be locked")
	}

	// 重复加锁命中 0 行，视为状态冲突
	if _, err := svc.SetLock(ctx, owner, f.ID, true); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double lock, got %v", err)
	}

	info, err = svc.SetLock(ctx, owner, f.ID, false)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if info.Locked {
		t.Fatal("expected file to be unlocked")
	}

	if _, err := svc.SetLock(ctx, owner, f.ID, false); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double unlock, got %v", err)
	}
}

func TestSetLockAuthorization(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	tests := []struct {
		name    string
		p       *identity.Principal
		wantErr error
	}{
		{"stranger denied", testPrincipal("mallory", true, identity.RoleUser), ErrDenied},
		{"owner without otp needs step-up", testPrincipal("alice", false, identity.RoleUser), ErrStepUpRequired},
		{"owner with otp allowed", testPrincipal("alice", true, identity.RoleUser), nil},
		{"admin not owner with otp allowed", testPrincipal("adm", true, identity.RoleWorkspaceAdmin), nil},
		{"admin not owner without otp allowed", testPrincipal("adm", false, identity.RoleWorkspaceAdmin), nil},
		{"owner admin without otp needs step-up", testPrincipal("alice", false, identity.RoleWorkspaceAdmin), ErrStepUpRequired},
		{"super without otp allowed", testPrincipal("root", false, identity.RolePlatformSuper), nil},
		{"anonymous denied", nil, ErrDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := seedFile(t, ctx, "alice", false)

			_, err := svc.SetLock(ctx, tt.p, f.ID, true)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("SetLock: %v", err)
			}
		})
	}
}

func TestSetLockMissingFile(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	if _, err := svc.SetLock(ctx, testPrincipal("alice", true, identity.RoleUser), 404404, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

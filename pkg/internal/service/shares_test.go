package service

import (
	"errors"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/identity"
)

func TestCreateDirectShare(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	info, err := svc.CreateDirectShare(ctx, owner, f.ID, "bob")
	if err != nil {
		t.Fatalf("CreateDirectShare: %v", err)
	}

	if info.UserID != "bob" || info.FileID != f.ID {
		t.Fatalf("unexpected share %+v", info)
	}

	// 重复分享幂等，返回同一条记录
	again, err := svc.CreateDirectShare(ctx, owner, f.ID, "bob")
	if err != nil {
		t.Fatalf("repeat CreateDirectShare: %v", err)
	}

	if again.ID != info.ID {
		t.Fatalf("expected same share id %d, got %d", info.ID, again.ID)
	}

	resp, err := svc.ListDirectShares(ctx, owner, f.ID)
	if err != nil {
		t.Fatalf("ListDirectShares: %v", err)
	}

	if len(resp.Shares) != 1 {
		t.Fatalf("expected 1 share, got %d", len(resp.Shares))
	}
}

func TestCreateDirectShareValidation(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	if _, err := svc.CreateDirectShare(ctx, owner, f.ID, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty user_id: expected ErrInvalidRequest, got %v", err)
	}

	if _, err := svc.CreateDirectShare(ctx, owner, f.ID, "alice"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("self share: expected ErrInvalidRequest, got %v", err)
	}

	stranger := testPrincipal("mallory", false, identity.RoleUser)
	if _, err := svc.CreateDirectShare(ctx, stranger, f.ID, "bob"); !errors.Is(err, ErrDenied) {
		t.Fatalf("non-owner: expected ErrDenied, got %v", err)
	}

	if _, err := svc.CreateDirectShare(ctx, owner, 777777, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file: expected ErrNotFound, got %v", err)
	}
}

func TestCreateDirectShareLockedFile(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewShareService(ctx)

	f := seedFile(t, ctx, "alice", true)
	owner := testPrincipal("alice", true, identity.RoleUser)

	if _, err := svc.CreateDirectShare(ctx, owner, f.ID, "bob"); !errors.Is(err, ErrLocked) {
		t.Fatalf("locked file: expected ErrLocked, got %v", err)
	}

	// 解锁后才能分享
	if _, err := NewFileService(ctx).SetLock(ctx, owner, f.ID, false); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if _, err := svc.CreateDirectShare(ctx, owner, f.ID, "bob"); err != nil {
		t.Fatalf("CreateDirectShare after unlock: %v", err)
	}
}

func TestRemoveDirectShare(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)
	seedDirectShare(t, ctx, f.ID, "bob")

	if err := svc.RemoveDirectShare(ctx, owner, f.ID, "bob"); err != nil {
		t.Fatalf("RemoveDirectShare: %v", err)
	}

	// 已移除，再删命中 0 行
	if err := svc.RemoveDirectShare(ctx, owner, f.ID, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stranger := testPrincipal("mallory", false, identity.RoleUser)
	if err := svc.RemoveDirectShare(ctx, stranger, f.ID, "bob"); !errors.Is(err, ErrDenied) {
		t.Fatalf("non-owner: expected ErrDenied, got %v", err)
	}
}

func TestListDirectSharesOwnerOnly(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	seedDirectShare(t, ctx, f.ID, "bob")

	// 被分享者能看文件，但不能看分享名单
	if _, err := svc.ListDirectShares(ctx, testPrincipal("bob", false, identity.RoleUser), f.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
}

package service

import (
	"errors"
	"testing"
	"time"

	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
)

func TestAuditRecordAndList(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewAuditService(ctx)

	f := seedFile(t, ctx, "alice", false)
	alice := testPrincipal("alice", false, identity.RoleUser)

	svc.Record(ctx, alice, AuditActionUpload, &f.ID, f.OriginalName)
	svc.Record(ctx, alice, AuditActionDownload, &f.ID, f.OriginalName)
	svc.Record(ctx, testPrincipal("bob", false, identity.RoleUser), AuditActionView, nil, "")

	admin := testPrincipal("adm", true, identity.RoleWorkspaceAdmin)

	resp, err := svc.List(ctx, admin)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if resp.Total != 3 {
		t.Fatalf("expected 3 entries, got %d", resp.Total)
	}

	for _, e := range resp.Logs {
		if len(e.ID) != 26 {
			t.Fatalf("expected 26-char ULID, got %q", e.ID)
		}
	}
}

func TestAuditListAuthorization(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewAuditService(ctx)

	if _, err := svc.List(ctx, testPrincipal("alice", true, identity.RoleUser)); !errors.Is(err, ErrDenied) {
		t.Fatalf("plain user: expected ErrDenied, got %v", err)
	}

	if _, err := svc.List(ctx, nil); !errors.Is(err, ErrDenied) {
		t.Fatalf("anonymous: expected ErrDenied, got %v", err)
	}

	if _, err := svc.List(ctx, testPrincipal("root", false, identity.RolePlatformSuper)); err != nil {
		t.Fatalf("super: %v", err)
	}
}

func TestAuditRecordNilPrincipal(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewAuditService(ctx)

	// 匿名路径（如公开分享兑换失败）不产生审计行，也不报错
	svc.Record(ctx, nil, AuditActionShareRedeem, nil, "")

	var n int64
	if err := testDB(ctx).Model(&model.AuditLog{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if n != 0 {
		t.Fatalf("expected no audit rows, got %d", n)
	}
}

func TestAuditIDMonotonic(t *testing.T) {
	now := time.Now().UTC()

	prev := newAuditID(now)
	for i := 0; i < 100; i++ {
		id := newAuditID(now)
		if id <= prev {
			t.Fatalf("ids not monotonic at #%d: %q then %q", i, prev, id)
		}

		prev = id
	}
}

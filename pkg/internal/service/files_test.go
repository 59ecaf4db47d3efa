package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
)

func TestListVisibility(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	mine := seedFile(t, ctx, "alice", false)
	shared := seedFile(t, ctx, "bob", false)
	seedFile(t, ctx, "bob", false) // 未分享，alice 不可见
	seedDirectShare(t, ctx, shared.ID, "alice")

	resp, err := svc.List(ctx, testPrincipal("alice", false, identity.RoleUser))
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if resp.Total != 2 {
		t.Fatalf("expected 2 visible files, got %d", resp.Total)
	}

	seen := map[uint]bool{}
	for _, f := range resp.Files {
		seen[f.ID] = true
	}

	if !seen[mine.ID] || !seen[shared.ID] {
		t.Fatalf("expected files %d and %d, got %v", mine.ID, shared.ID, seen)
	}
}

func TestListNilPrincipal(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	if _, err := svc.List(ctx, nil); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
}

func TestListAllAuthorization(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	seedFile(t, ctx, "alice", false)
	seedFile(t, ctx, "bob", false)

	tests := []struct {
		name    string
		p       *identity.Principal
		wantErr error
	}{
		{"super allowed", testPrincipal("root", false, identity.RolePlatformSuper), nil},
		{"admin with otp allowed", testPrincipal("adm", true, identity.RoleWorkspaceAdmin), nil},
		{"admin without otp needs step-up", testPrincipal("adm", false, identity.RoleWorkspaceAdmin), ErrStepUpRequired},
		{"plain user denied", testPrincipal("alice", true, identity.RoleUser), ErrDenied},
		{"anonymous denied", nil, ErrDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.ListAll(ctx, tt.p)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("ListAll: %v", err)
			}

			if resp.Total != 2 {
				t.Fatalf("expected 2 files, got %d", resp.Total)
			}
		})
	}
}

func TestGetMetadata(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	f := seedFile(t, ctx, "alice", false)
	seedDirectShare(t, ctx, f.ID, "carol")

	t.Run("owner", func(t *testing.T) {
		info, err := svc.Get(ctx, testPrincipal("alice", false, identity.RoleUser), f.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}

		if info.OriginalName != "seed.txt" {
			t.Fatalf("unexpected original name %q", info.OriginalName)
		}
	})

	t.Run("shared user", func(t *testing.T) {
		if _, err := svc.Get(ctx, testPrincipal("carol", false, identity.RoleUser), f.ID); err != nil {
			t.Fatalf("Get: %v", err)
		}
	})

	t.Run("stranger denied", func(t *testing.T) {
		if _, err := svc.Get(ctx, testPrincipal("mallory", false, identity.RoleUser), f.ID); !errors.Is(err, ErrDenied) {
			t.Fatalf("expected ErrDenied, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := svc.Get(ctx, testPrincipal("alice", false, identity.RoleUser), 99999); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDeleteAuthorization(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	f := seedFile(t, ctx, "alice", false)

	tests := []struct {
		name    string
		p       *identity.Principal
		wantErr error
	}{
		{"stranger denied", testPrincipal("mallory", true, identity.RoleUser), ErrDenied},
		{"admin not owner denied", testPrincipal("adm", true, identity.RoleWorkspaceAdmin), ErrDenied},
		{"super not owner denied", testPrincipal("root", true, identity.RolePlatformSuper), ErrDenied},
		{"owner without otp needs step-up", testPrincipal("alice", false, identity.RoleUser), ErrStepUpRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Delete(ctx, tt.p, f.ID); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// 以上路径均不得动到文件
	var n int64
	if err := testDB(ctx).Model(&model.File{}).Where("id = ?", f.ID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if n != 1 {
		t.Fatalf("file should survive denied deletes, count=%d", n)
	}
}

func TestDeleteBlockedByLock(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	f := seedFile(t, ctx, "alice", true)

	if err := svc.Delete(ctx, testPrincipal("alice", true, identity.RoleUser), f.ID); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestDeleteBlockedByActiveShare(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	f := seedFile(t, ctx, "alice", false)
	seedPublicShare(t, ctx, f.ID, "tokenactive000000000000000000001", "alice",
		timePtr(time.Now().UTC().Add(time.Hour)))

	if err := svc.Delete(ctx, testPrincipal("alice", true, identity.RoleUser), f.ID); !errors.Is(err, ErrHasActiveShares) {
		t.Fatalf("expected ErrHasActiveShares, got %v", err)
	}
}

func TestDeleteCascadesShares(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	f := seedFile(t, ctx, "alice", false)
	seedDirectShare(t, ctx, f.ID, "carol")
	// 过期的公开分享不阻止删除，但其行要被一并清理
	seedPublicShare(t, ctx, f.ID, "tokenexpired00000000000000000001", "alice",
		timePtr(time.Now().UTC().Add(-time.Hour)))

	if err := svc.Delete(ctx, testPrincipal("alice", true, identity.RoleUser), f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	gdb := testDB(ctx)

	var files, direct, public int64

	if err := gdb.Model(&model.File{}).Where("id = ?", f.ID).Count(&files).Error; err != nil {
		t.Fatalf("count files: %v", err)
	}

	if err := gdb.Model(&model.DirectShare{}).Where("file_id = ?", f.ID).Count(&direct).Error; err != nil {
		t.Fatalf("count direct shares: %v", err)
	}

	if err := gdb.Model(&model.PublicShare{}).Where("file_id = ?", f.ID).Count(&public).Error; err != nil {
		t.Fatalf("count public shares: %v", err)
	}

	if files != 0 || direct != 0 || public != 0 {
		t.Fatalf("cascade incomplete: files=%d direct=%d public=%d", files, direct, public)
	}
}

func TestDeleteMissingFile(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewFileService(ctx)

	if err := svc.Delete(ctx, testPrincipal("alice", true, identity.RoleUser), 424242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoredFileName(t *testing.T) {
	now := time.UnixMilli(1700000000000).UTC()

	got := storedFileName(now, "../../etc/passwd")
	want := "1700000000000-passwd"

	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func testDB(ctx context.Context) *gorm.DB {
	return ctxPkg.GetDBClient(ctx).GetDB()
}

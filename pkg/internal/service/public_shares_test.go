package service

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestCreatePublicShare(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	resp, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{
		Password:       "s3cret",
		ExpiresInHours: 1.5,
	})
	if err != nil {
		t.Fatalf("CreatePublicShare: %v", err)
	}

	share := resp.Share

	if len(share.Token) != 32 {
		t.Fatalf("expected 32-char token, got %q (%d)", share.Token, len(share.Token))
	}

	if !share.HasPassword {
		t.Fatal("expected HasPassword=true")
	}

	if share.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}

	d := time.Until(*share.ExpiresAt)
	if d < 80*time.Minute || d > 100*time.Minute {
		t.Fatalf("expiry out of range: %v", d)
	}

	if share.DownloadCount != 0 {
		t.Fatalf("fresh share should have zero downloads, got %d", share.DownloadCount)
	}
}

func TestCreatePublicShareInvalidHours(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	for _, hours := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{ExpiresInHours: hours})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("hours=%v: expected ErrInvalidRequest, got %v", hours, err)
		}
	}

	if _, err := svc.CreatePublicShare(ctx, owner, f.ID, nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("nil request: expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreatePublicShareAuthorization(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	locked := seedFile(t, ctx, "alice", true)

	tests := []struct {
		name    string
		p       *identity.Principal
		fileID  uint
		wantErr error
	}{
		{"stranger denied", testPrincipal("mallory", false, identity.RoleUser), f.ID, ErrDenied},
		{"admin not owner denied", testPrincipal("adm", true, identity.RoleWorkspaceAdmin), f.ID, ErrDenied},
		{"locked file refused", testPrincipal("alice", false, identity.RoleUser), locked.ID, ErrLocked},
		{"missing file", testPrincipal("alice", false, identity.RoleUser), 888888, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePublicShare(ctx, tt.p, tt.fileID, &types.CreatePublicShareRequest{ExpiresInHours: 24})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolvePublicShare(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	resp, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{Password: "pw", ExpiresInHours: 24})
	if err != nil {
		t.Fatalf("CreatePublicShare: %v", err)
	}

	view, err := svc.Resolve(ctx, resp.Share.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if view.FileName != "seed.txt" || view.Size != 42 || view.ContentType != "text/plain" {
		t.Fatalf("unexpected view %+v", view)
	}

	if !view.RequiresPassword {
		t.Fatal("expected RequiresPassword=true")
	}

	// 二次解析走缓存，结果一致
	again, err := svc.Resolve(ctx, resp.Share.Token)
	if err != nil {
		t.Fatalf("cached Resolve: %v", err)
	}

	if again.FileName != view.FileName {
		t.Fatalf("cache mismatch: %q vs %q", again.FileName, view.FileName)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	if _, err := svc.Resolve(ctx, "nosuchtoken0000000000000000000ff"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	if _, err := svc.Resolve(ctx, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("empty token: expected ErrTokenNotFound, got %v", err)
	}
}

func TestResolveExpiredToken(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	seedPublicShare(t, ctx, f.ID, "expiredtoken00000000000000000001", "alice",
		timePtr(time.Now().UTC().Add(-time.Minute)))

	if _, err := svc.Resolve(ctx, "expiredtoken00000000000000000001"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRedeemIncrementsCount(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	resp, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{ExpiresInHours: 24})
	if err != nil {
		t.Fatalf("CreatePublicShare: %v", err)
	}

	for i := 1; i <= 3; i++ {
		share, got, err := svc.Redeem(ctx, resp.Share.Token, "")
		if err != nil {
			t.Fatalf("Redeem #%d: %v", i, err)
		}

		if share.DownloadCount != int64(i) {
			t.Fatalf("expected count %d, got %d", i, share.DownloadCount)
		}

		if got.ID != f.ID {
			t.Fatalf("expected file %d, got %d", f.ID, got.ID)
		}
	}
}

func TestRedeemConcurrent(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	resp, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{ExpiresInHours: 24})
	if err != nil {
		t.Fatalf("CreatePublicShare: %v", err)
	}

	const workers = 8

	var wg sync.WaitGroup

	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, _, err := svc.Redeem(ctx, resp.Share.Token, ""); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Redeem: %v", err)
	}

	// 递增在单条 UPDATE 内完成，并发下一次都不能丢
	var check model.PublicShare
	if err := testDB(ctx).Where("token = ?", resp.Share.Token).First(&check).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}

	if check.DownloadCount != workers {
		t.Fatalf("expected count %d, got %d", workers, check.DownloadCount)
	}
}

func TestRedeemPassword(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	resp, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{Password: "s3cret", ExpiresInHours: 24})
	if err != nil {
		t.Fatalf("CreatePublicShare: %v", err)
	}

	if _, _, err := svc.Redeem(ctx, resp.Share.Token, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}

	if _, _, err := svc.Redeem(ctx, resp.Share.Token, ""); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("blank password: expected ErrWrongPassword, got %v", err)
	}

	// 密码错误不得消耗计数
	var check model.PublicShare
	if err := testDB(ctx).Where("token = ?", resp.Share.Token).First(&check).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}

	if check.DownloadCount != 0 {
		t.Fatalf("count should stay 0 after failed attempts, got %d", check.DownloadCount)
	}

	share, _, err := svc.Redeem(ctx, resp.Share.Token, "s3cret")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	if share.DownloadCount != 1 {
		t.Fatalf("expected count 1, got %d", share.DownloadCount)
	}
}

func TestRedeemExpired(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	seedPublicShare(t, ctx, f.ID, "expiredtoken00000000000000000002", "alice",
		timePtr(time.Now().UTC().Add(-time.Minute)))

	if _, _, err := svc.Redeem(ctx, "expiredtoken00000000000000000002", ""); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRedeemStaleCache(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	resp, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{ExpiresInHours: 24})
	if err != nil {
		t.Fatalf("CreatePublicShare: %v", err)
	}

	// 绕过 service 直接删行，缓存此时仍有旧快照
	if err := testDB(ctx).Where("token = ?", resp.Share.Token).
		Delete(&model.PublicShare{}).Error; err != nil {
		t.Fatalf("delete row: %v", err)
	}

	if _, _, err := svc.Redeem(ctx, resp.Share.Token, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestRevokePublicShare(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	resp, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{ExpiresInHours: 24})
	if err != nil {
		t.Fatalf("CreatePublicShare: %v", err)
	}

	// 非属主拿不到 403，否则等于承认分享存在
	stranger := testPrincipal("mallory", false, identity.RoleUser)
	if err := svc.RevokePublicShare(ctx, stranger, resp.Share.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("non-owner revoke: expected ErrNotFound, got %v", err)
	}

	if err := svc.RevokePublicShare(ctx, owner, resp.Share.ID); err != nil {
		t.Fatalf("RevokePublicShare: %v", err)
	}

	if _, err := svc.Resolve(ctx, resp.Share.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("revoked token: expected ErrTokenNotFound, got %v", err)
	}

	if err := svc.RevokePublicShare(ctx, owner, resp.Share.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double revoke: expected ErrNotFound, got %v", err)
	}
}

func TestListPublicShares(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	owner := testPrincipal("alice", false, identity.RoleUser)

	for i := 0; i < 2; i++ {
		if _, err := svc.CreatePublicShare(ctx, owner, f.ID, &types.CreatePublicShareRequest{ExpiresInHours: 24}); err != nil {
			t.Fatalf("CreatePublicShare: %v", err)
		}
	}

	resp, err := svc.ListPublicShares(ctx, owner, f.ID)
	if err != nil {
		t.Fatalf("ListPublicShares: %v", err)
	}

	if len(resp.Shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(resp.Shares))
	}

	if _, err := svc.ListPublicShares(ctx, testPrincipal("mallory", false, identity.RoleUser), f.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("non-owner list: expected ErrDenied, got %v", err)
	}
}

func TestPurgeExpiredShares(t *testing.T) {
	ctx := newTestContext(t)
	svc := NewPublicShareService(ctx)

	f := seedFile(t, ctx, "alice", false)
	now := time.Now().UTC()

	seedPublicShare(t, ctx, f.ID, "longgonetoken0000000000000000001", "alice",
		timePtr(now.Add(-40*24*time.Hour)))
	seedPublicShare(t, ctx, f.ID, "justexpiredtoken0000000000000001", "alice",
		timePtr(now.Add(-time.Hour)))
	seedPublicShare(t, ctx, f.ID, "permanenttoken000000000000000001", "alice", nil)

	n, err := svc.PurgeExpired(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}

	if n != 1 {
		t.Fatalf("expected 1 purged share, got %d", n)
	}

	var remaining int64
	if err := testDB(ctx).Model(&model.PublicShare{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if remaining != 2 {
		t.Fatalf("expected 2 remaining shares, got %d", remaining)
	}
}

func TestTTLFromExpiry(t *testing.T) {
	if got := ttlFromExpiry(nil); got != shareCacheDefaultTTL {
		t.Fatalf("nil expiry: expected %v, got %v", shareCacheDefaultTTL, got)
	}

	far := time.Now().Add(48 * time.Hour)
	if got := ttlFromExpiry(&far); got != shareCacheMaxTTL {
		t.Fatalf("far expiry: expected %v, got %v", shareCacheMaxTTL, got)
	}

	past := time.Now().Add(-time.Minute)
	if got := ttlFromExpiry(&past); got != 0 {
		t.Fatalf("past expiry: expected 0, got %v", got)
	}

	soon := time.Now().Add(time.Minute)
	if got := ttlFromExpiry(&soon); got <= 0 || got > time.Minute {
		t.Fatalf("near expiry: expected (0, 1m], got %v", got)
	}
}

func TestNewShareToken(t *testing.T) {
	a := newShareToken()
	b := newShareToken()

	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("expected 32-char tokens, got %d and %d", len(a), len(b))
	}

	if a == b {
		t.Fatal("tokens must be unique")
	}

	for _, c := range a {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("unexpected character %q in token %q", c, a)
		}
	}
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/storage"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
	"github.com/yeisme/filevault/pkg/internal/storage/kv"
)

// newTestContext 构建带内存 SQLite 与内存 KV 的测试上下文.
func newTestContext(t *testing.T) context.Context {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}

	// 内存库单连接，避免每个连接各自一份空库
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(model.Models()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("new memory kv: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
		_ = sqlDB.Close()
	})

	mgr := &storage.Manager{
		DB: &db.Client{DB: gdb},
		KV: &kv.Client{KVStore: store},
	}

	return ctxPkg.WithStorageManager(ctx, mgr)
}

func testPrincipal(sub string, stepUp bool, roles ...string) *identity.Principal {
	p := &identity.Principal{
		SubjectID:       sub,
		Username:        sub,
		Roles:           make(map[string]struct{}, len(roles)),
		StepUpSatisfied: stepUp,
	}

	for _, r := range roles {
		p.Roles[r] = struct{}{}
	}

	return p
}

var seedSeq int

func seedFile(t *testing.T, ctx context.Context, owner string, locked bool) *model.File {
	t.Helper()

	seedSeq++

	f := &model.File{
		OwnerID:      owner,
		FileName:     fmt.Sprintf("%d-%d-seed.txt", time.Now().UnixMilli(), seedSeq),
		OriginalName: "seed.txt",
		Size:         42,
		ContentType:  "text/plain",
		Locked:       locked,
	}

	if err := ctxPkg.GetDBClient(ctx).GetDB().Create(f).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	return f
}

func seedDirectShare(t *testing.T, ctx context.Context, fileID uint, userID string) {
	t.Helper()

	if err := ctxPkg.GetDBClient(ctx).GetDB().
		Create(&model.DirectShare{FileID: fileID, UserID: userID}).Error; err != nil {
		t.Fatalf("seed direct share: %v", err)
	}
}

func seedPublicShare(t *testing.T, ctx context.Context, fileID uint, token, createdBy string, expiresAt *time.Time) *model.PublicShare {
	t.Helper()

	s := &model.PublicShare{
		FileID:    fileID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
	}

	if err := ctxPkg.GetDBClient(ctx).GetDB().Create(s).Error; err != nil {
		t.Fatalf("seed public share: %v", err)
	}

	return s
}

func timePtr(t time.Time) *time.Time { return &t }

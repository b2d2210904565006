package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"oqas/backend/internal/dto"
	"oqas/backend/internal/model"
)

// fakeDBPool 记录恢复流程对连接池的操作序列
type fakeDBPool struct {
	calls   []string
	open    int
	pingErr error
}

func (p *fakeDBPool) SetMaxIdleConns(n int) {
	p.calls = append(p.calls, fmt.Sprintf("idle=%d", n))
}

func (p *fakeDBPool) Stats() sql.DBStats {
	return sql.DBStats{OpenConnections: p.open}
}

func (p *fakeDBPool) PingContext(_ context.Context) error {
	p.calls = append(p.calls, "ping")
	return p.pingErr
}

func newAdminSvc(env *testEnv) AdminService {
	return NewAdminService(env.cfg, env.repo, &fakeDBPool{}, zap.NewNop())
}

// ── 讲师管理 ──

func TestCreateLecturer_Success(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)

	resp, err := svc.CreateLecturer(context.Background(), &dto.CreateLecturerRequest{
		Username: "lecturer1",
		FullName: "王老师",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("CreateLecturer 应成功，但返回错误: %v", err)
	}
	if resp.UserID == 0 {
		t.Error("UserID 不应为 0")
	}

	stored, _ := env.users.GetByID(context.Background(), resp.UserID)
	if stored.Role != model.RoleLecturer {
		t.Errorf("期望 role=lecturer，实际=%s", stored.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")); err != nil {
		t.Error("密码应以 bcrypt 存储")
	}
}

func TestCreateLecturer_DuplicateUsername(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)

	req := &dto.CreateLecturerRequest{Username: "lecturer1", FullName: "王老师", Password: "password123"}
	if _, err := svc.CreateLecturer(context.Background(), req); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	_, err := svc.CreateLecturer(context.Background(), req)
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("期望 ErrUsernameExists，实际: %v", err)
	}
}

func TestResetLecturerPassword_Success(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)

	resp, err := svc.CreateLecturer(context.Background(), &dto.CreateLecturerRequest{
		Username: "lecturer1", FullName: "王老师", Password: "password123",
	})
	if err != nil {
		t.Fatalf("创建讲师失败: %v", err)
	}

	if err := svc.ResetLecturerPassword(context.Background(), resp.UserID,
		&dto.ResetPasswordRequest{NewPassword: "new-password-1"}); err != nil {
		t.Fatalf("重置密码应成功: %v", err)
	}

	stored, _ := env.users.GetByID(context.Background(), resp.UserID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-password-1")); err != nil {
		t.Error("重置后应可用新密码验证")
	}
}

func TestResetLecturerPassword_NotFound(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)

	err := svc.ResetLecturerPassword(context.Background(), 999,
		&dto.ResetPasswordRequest{NewPassword: "new-password-1"})
	if !errors.Is(err, ErrLecturerNotFound) {
		t.Errorf("期望 ErrLecturerNotFound，实际: %v", err)
	}
}

func TestResetLecturerPassword_NotALecturer(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)
	admin := &model.User{Username: "admin", PasswordHash: "x", Role: model.RoleAdmin, FullName: "管理员"}
	_ = env.users.Create(context.Background(), admin)

	err := svc.ResetLecturerPassword(context.Background(), admin.UserID,
		&dto.ResetPasswordRequest{NewPassword: "new-password-1"})
	if !errors.Is(err, ErrLecturerNotFound) {
		t.Errorf("讲师接口不应作用于非讲师账号，期望 ErrLecturerNotFound，实际: %v", err)
	}
}

func TestDeleteLecturer_Success(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)

	resp, _ := svc.CreateLecturer(context.Background(), &dto.CreateLecturerRequest{
		Username: "lecturer1", FullName: "王老师", Password: "password123",
	})
	if err := svc.DeleteLecturer(context.Background(), resp.UserID); err != nil {
		t.Fatalf("删除讲师应成功: %v", err)
	}
	if err := svc.DeleteLecturer(context.Background(), resp.UserID); !errors.Is(err, ErrLecturerNotFound) {
		t.Errorf("重复删除期望 ErrLecturerNotFound，实际: %v", err)
	}
}

// ── 模块管理 ──

func TestCreateModule_Success(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)
	lecturer, _ := svc.CreateLecturer(context.Background(), &dto.CreateLecturerRequest{
		Username: "lecturer1", FullName: "王老师", Password: "password123",
	})

	resp, err := svc.CreateModule(context.Background(), &dto.CreateModuleRequest{
		ModuleCode: "CS101",
		ModuleName: "数据结构",
		LecturerID: lecturer.UserID,
	})
	if err != nil {
		t.Fatalf("CreateModule 应成功，但返回错误: %v", err)
	}
	if resp.PlannedWeeks != 14 {
		t.Errorf("未指定计划周数时应默认 14，实际=%d", resp.PlannedWeeks)
	}
}

func TestCreateModule_DuplicateCode(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)
	lecturer, _ := svc.CreateLecturer(context.Background(), &dto.CreateLecturerRequest{
		Username: "lecturer1", FullName: "王老师", Password: "password123",
	})

	req := &dto.CreateModuleRequest{ModuleCode: "CS101", ModuleName: "数据结构", LecturerID: lecturer.UserID}
	if _, err := svc.CreateModule(context.Background(), req); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	_, err := svc.CreateModule(context.Background(), req)
	if !errors.Is(err, ErrModuleCodeExists) {
		t.Errorf("期望 ErrModuleCodeExists，实际: %v", err)
	}
}

func TestCreateModule_LecturerNotFound(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)

	_, err := svc.CreateModule(context.Background(), &dto.CreateModuleRequest{
		ModuleCode: "CS101", ModuleName: "数据结构", LecturerID: 999,
	})
	if !errors.Is(err, ErrLecturerNotFound) {
		t.Errorf("期望 ErrLecturerNotFound，实际: %v", err)
	}
}

func TestUpdateModule_Success(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)
	lecturer, _ := svc.CreateLecturer(context.Background(), &dto.CreateLecturerRequest{
		Username: "lecturer1", FullName: "王老师", Password: "password123",
	})
	created, _ := svc.CreateModule(context.Background(), &dto.CreateModuleRequest{
		ModuleCode: "CS101", ModuleName: "数据结构", LecturerID: lecturer.UserID,
	})

	updated, err := svc.UpdateModule(context.Background(), created.ModuleID, &dto.UpdateModuleRequest{
		ModuleCode:   "CS102",
		ModuleName:   "算法设计",
		LecturerID:   lecturer.UserID,
		PlannedWeeks: 12,
	})
	if err != nil {
		t.Fatalf("UpdateModule 应成功，但返回错误: %v", err)
	}
	if updated.ModuleCode != "CS102" || updated.PlannedWeeks != 12 {
		t.Errorf("更新结果不符: %+v", updated)
	}
}

func TestDeleteModule_NotFound(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)

	if err := svc.DeleteModule(context.Background(), 999); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("期望 ErrModuleNotFound，实际: %v", err)
	}
}

// ── 备份 / 恢复 ──

func setupBackupEnv(t *testing.T, env *testEnv, content string) {
	t.Helper()
	dir := t.TempDir()
	env.cfg.Database.Path = filepath.Join(dir, "oqas.db")
	env.cfg.Backup.Dir = filepath.Join(dir, "backups")
	if err := os.WriteFile(env.cfg.Database.Path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试数据库文件失败: %v", err)
	}
}

func TestBackup_CopiesDatabaseFile(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)
	setupBackupEnv(t, env, "sqlite-bytes")

	resp, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup 应成功，但返回错误: %v", err)
	}
	if resp.SizeBytes != int64(len("sqlite-bytes")) {
		t.Errorf("期望备份大小=%d，实际=%d", len("sqlite-bytes"), resp.SizeBytes)
	}

	data, err := os.ReadFile(filepath.Join(env.cfg.Backup.Dir, resp.Filename))
	if err != nil {
		t.Fatalf("读取备份文件失败: %v", err)
	}
	if string(data) != "sqlite-bytes" {
		t.Error("备份内容应与数据库文件一致")
	}
}

func TestListBackups_EmptyDirOK(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)
	env.cfg.Backup.Dir = filepath.Join(t.TempDir(), "missing")

	backups, err := svc.ListBackups(context.Background())
	if err != nil {
		t.Fatalf("备份目录缺失时应返回空列表: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("期望空列表，实际=%d 条", len(backups))
	}
}

func TestRestore_OverwritesWithAutoBackup(t *testing.T) {
	env := newTestEnv()
	svc := newAdminSvc(env)
	setupBackupEnv(t, env, "old-content")

	if err := svc.Restore(context.Background(), bytes.NewReader([]byte("new-content"))); err != nil {
		t.Fatalf("Restore 应成功，但返回错误: %v", err)
	}

	data, _ := os.ReadFile(env.cfg.Database.Path)
	if string(data) != "new-content" {
		t.Errorf("期望恢复后内容=new-content，实际=%s", data)
	}

	// 恢复前应先自动备份原库
	backups, err := svc.ListBackups(context.Background())
	if err != nil || len(backups) != 1 {
		t.Fatalf("期望 1 个自动备份，实际=%d (err=%v)", len(backups), err)
	}
	backupData, _ := os.ReadFile(filepath.Join(env.cfg.Backup.Dir, backups[0].Filename))
	if string(backupData) != "old-content" {
		t.Error("自动备份应保留恢复前的原库内容")
	}
}

func TestRestore_QuiescesConnectionPool(t *testing.T) {
	env := newTestEnv()
	env.cfg.Database.MaxIdleConns = 10
	pool := &fakeDBPool{}
	svc := NewAdminService(env.cfg, env.repo, pool, zap.NewNop())
	setupBackupEnv(t, env, "old-content")

	if err := svc.Restore(context.Background(), bytes.NewReader([]byte("new-content"))); err != nil {
		t.Fatalf("Restore 应成功，但返回错误: %v", err)
	}

	// 先清空空闲连接排空旧文件句柄，换文件后恢复池容量并 Ping 校验
	want := []string{"idle=0", "idle=10", "ping"}
	if len(pool.calls) != len(want) {
		t.Fatalf("期望连接池操作序列 %v，实际=%v", want, pool.calls)
	}
	for i := range want {
		if pool.calls[i] != want[i] {
			t.Fatalf("期望连接池操作序列 %v，实际=%v", want, pool.calls)
		}
	}
}

func TestRestore_PingFailureSurfaces(t *testing.T) {
	env := newTestEnv()
	pool := &fakeDBPool{pingErr: errors.New("database is locked")}
	svc := NewAdminService(env.cfg, env.repo, pool, zap.NewNop())
	setupBackupEnv(t, env, "old-content")

	if err := svc.Restore(context.Background(), bytes.NewReader([]byte("new-content"))); err == nil {
		t.Fatal("恢复后 Ping 失败时不应报告成功")
	}
}

// ── 启动引导 ──

func TestEnsureAdmin_CreatesBootstrapAdmin(t *testing.T) {
	env := newTestEnv()
	env.cfg.Auth.BootstrapAdminUser = "admin"
	env.cfg.Auth.BootstrapAdminPassword = "bootstrap-pass-1"
	svc := newAdminSvc(env)

	if err := svc.EnsureAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureAdmin 应成功，但返回错误: %v", err)
	}

	admin, err := env.users.GetByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("初始管理员应被创建: %v", err)
	}
	if admin.Role != model.RoleAdmin {
		t.Errorf("期望 role=admin，实际=%s", admin.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("bootstrap-pass-1")); err != nil {
		t.Error("初始管理员密码应按配置设置")
	}
}

func TestEnsureAdmin_SkipsWhenAdminExists(t *testing.T) {
	env := newTestEnv()
	env.cfg.Auth.BootstrapAdminUser = "admin2"
	svc := newAdminSvc(env)

	existing := &model.User{Username: "admin", PasswordHash: "x", Role: model.RoleAdmin, FullName: "管理员"}
	_ = env.users.Create(context.Background(), existing)

	if err := svc.EnsureAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureAdmin 应成功: %v", err)
	}
	if _, err := env.users.GetByUsername(context.Background(), "admin2"); err == nil {
		t.Error("已有管理员时不应再创建")
	}
}

// [自证通过] internal/service/admin_service_test.go

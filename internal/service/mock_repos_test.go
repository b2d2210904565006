package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"oqas/backend/config"
	"oqas/backend/internal/model"
	"oqas/backend/internal/repository"
	"oqas/backend/pkg/jwt"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
		if user.UserID != 0 && u.UserID == user.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == 0 {
		user.UserID = m.nextID
		m.nextID++
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, hash string, mustChange bool) (int64, error) {
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	u.PasswordHash = hash
	u.MustChangePassword = mustChange
	return 1, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) DeleteByRole(_ context.Context, id int64, role string) (int64, error) {
	if u, ok := m.users[id]; ok && u.Role == role {
		delete(m.users, id)
		return 1, nil
	}
	return 0, nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ── Mock ModuleRepository ──

type mockModuleRepo struct {
	modules map[int64]*model.Module
	users   *mockUserRepo
	nextID  int64
}

func newMockModuleRepo(users *mockUserRepo) *mockModuleRepo {
	return &mockModuleRepo{modules: make(map[int64]*model.Module), users: users, nextID: 1}
}

func (m *mockModuleRepo) Create(_ context.Context, module *model.Module) error {
	for _, mod := range m.modules {
		if mod.ModuleCode == module.ModuleCode {
			return gorm.ErrDuplicatedKey
		}
	}
	if module.ModuleID == 0 {
		module.ModuleID = m.nextID
		m.nextID++
	}
	m.modules[module.ModuleID] = module
	return nil
}

func (m *mockModuleRepo) GetByID(_ context.Context, id int64) (*model.Module, error) {
	if mod, ok := m.modules[id]; ok {
		return mod, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockModuleRepo) Update(_ context.Context, module *model.Module) error {
	for _, mod := range m.modules {
		if mod.ModuleID != module.ModuleID && mod.ModuleCode == module.ModuleCode {
			return gorm.ErrDuplicatedKey
		}
	}
	m.modules[module.ModuleID] = module
	return nil
}

func (m *mockModuleRepo) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := m.modules[id]; ok {
		delete(m.modules, id)
		return 1, nil
	}
	return 0, nil
}

func (m *mockModuleRepo) List(_ context.Context) ([]model.Module, error) {
	var result []model.Module
	for _, mod := range m.modules {
		item := *mod
		if u, ok := m.users.users[mod.LecturerID]; ok {
			item.Lecturer = u
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ModuleID < result[j].ModuleID })
	return result, nil
}

func (m *mockModuleRepo) ListByLecturer(_ context.Context, lecturerID int64) ([]model.Module, error) {
	var result []model.Module
	for _, mod := range m.modules {
		if mod.LecturerID == lecturerID {
			result = append(result, *mod)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ModuleID < result[j].ModuleID })
	return result, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	sessions map[int64]*model.Session
	modules  *mockModuleRepo
	nextID   int64
}

func newMockSessionRepo(modules *mockModuleRepo) *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[int64]*model.Session), modules: modules, nextID: 1}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	if session.SessionID == 0 {
		session.SessionID = m.nextID
		m.nextID++
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id int64) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		item := *s
		if mod, ok := m.modules.modules[s.ModuleID]; ok {
			item.Module = mod
		}
		return &item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) Update(_ context.Context, session *model.Session) error {
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionRepo) GetActiveByModuleDate(_ context.Context, moduleID int64, date string) (*model.Session, error) {
	for _, s := range m.sessions {
		if s.ModuleID == moduleID && s.SessionDate == date && s.Status == model.SessionActive {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetLatestByModuleWeek(_ context.Context, moduleID int64, week int) (*model.Session, error) {
	var latest *model.Session
	for _, s := range m.sessions {
		if s.ModuleID == moduleID && s.WeekNumber == week {
			if latest == nil || s.SessionID > latest.SessionID {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockSessionRepo) ExpireActiveBefore(_ context.Context, moduleID int64, cutoff, endedAt time.Time) ([]int64, error) {
	var ids []int64
	for _, s := range m.sessions {
		if s.ModuleID == moduleID && s.Status == model.SessionActive && s.CreatedAt.Before(cutoff) {
			ended := endedAt
			s.Status = model.SessionEnded
			s.EndedAt = &ended
			ids = append(ids, s.SessionID)
		}
	}
	return ids, nil
}

func (m *mockSessionRepo) CloseByID(_ context.Context, id int64, endedAt time.Time) (int64, error) {
	s, ok := m.sessions[id]
	if !ok || s.Status != model.SessionActive {
		return 0, nil
	}
	ended := endedAt
	s.Status = model.SessionEnded
	s.EndedAt = &ended
	return 1, nil
}

func (m *mockSessionRepo) CloseActiveByModuleDate(_ context.Context, moduleID int64, date string, endedAt time.Time) (int64, error) {
	var n int64
	for _, s := range m.sessions {
		if s.ModuleID == moduleID && s.SessionDate == date && s.Status == model.SessionActive {
			ended := endedAt
			s.Status = model.SessionEnded
			s.EndedAt = &ended
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) ListByModule(_ context.Context, moduleID int64) ([]model.Session, error) {
	var result []model.Session
	for _, s := range m.sessions {
		if s.ModuleID == moduleID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SessionID < result[j].SessionID })
	return result, nil
}

func (m *mockSessionRepo) CountByModule(_ context.Context, moduleID int64) (int64, error) {
	var n int64
	for _, s := range m.sessions {
		if s.ModuleID == moduleID {
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) ListByModuleWindow(_ context.Context, moduleID int64, start, end string) ([]model.Session, error) {
	var result []model.Session
	for _, s := range m.sessions {
		if s.ModuleID != moduleID {
			continue
		}
		if start != "" && s.SessionDate < start {
			continue
		}
		if end != "" && s.SessionDate > end {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SessionID < result[j].SessionID })
	return result, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records  []*model.AttendanceRecord
	users    *mockUserRepo
	sessions *mockSessionRepo
	nextID   int64
}

func newMockAttendanceRepo(users *mockUserRepo, sessions *mockSessionRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{users: users, sessions: sessions, nextID: 1}
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	for _, r := range m.records {
		if r.SessionID == record.SessionID && r.StudentID == record.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	record.AttendanceID = m.nextID
	m.nextID++
	m.records = append(m.records, record)
	return nil
}

func (m *mockAttendanceRepo) Exists(_ context.Context, sessionID, studentID int64) (bool, error) {
	for _, r := range m.records {
		if r.SessionID == sessionID && r.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttendanceRepo) ListBySession(_ context.Context, sessionID int64) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			item := *r
			if u, ok := m.users.users[r.StudentID]; ok {
				item.Student = u
			}
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CheckinTime.Before(result[j].CheckinTime) })
	return result, nil
}

func (m *mockAttendanceRepo) CountForStudentInModule(_ context.Context, studentID, moduleID int64) (int64, error) {
	var n int64
	for _, r := range m.records {
		if r.StudentID != studentID {
			continue
		}
		if s, ok := m.sessions.sessions[r.SessionID]; ok && s.ModuleID == moduleID {
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) PerStudentCountsInSessions(_ context.Context, sessionIDs []int64, studentID int64) ([]repository.StudentCount, error) {
	inWindow := make(map[int64]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		inWindow[id] = true
	}

	counts := make(map[int64]int)
	for _, r := range m.records {
		if !inWindow[r.SessionID] {
			continue
		}
		if studentID > 0 && r.StudentID != studentID {
			continue
		}
		counts[r.StudentID]++
	}

	var result []repository.StudentCount
	for sid, n := range counts {
		name := ""
		if u, ok := m.users.users[sid]; ok {
			name = u.FullName
		}
		result = append(result, repository.StudentCount{StudentID: sid, FullName: name, Attended: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })
	return result, nil
}

// ── Mock RunRepository ──

type mockRunRepo struct {
	runs []*model.AppRun
}

func newMockRunRepo() *mockRunRepo { return &mockRunRepo{} }

func (m *mockRunRepo) Create(_ context.Context, run *model.AppRun) error {
	run.RunID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockRunRepo) GetLatest(_ context.Context) (*model.AppRun, error) {
	if len(m.runs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return m.runs[len(m.runs)-1], nil
}

// ── Mock AuditRepository ──

type mockAuditRepo struct {
	audits []model.SessionAudit
}

func newMockAuditRepo() *mockAuditRepo { return &mockAuditRepo{} }

func (m *mockAuditRepo) Create(_ context.Context, audit *model.SessionAudit) error {
	audit.AuditID = int64(len(m.audits) + 1)
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *mockAuditRepo) ListBySession(_ context.Context, sessionID int64) ([]model.SessionAudit, error) {
	var result []model.SessionAudit
	for _, a := range m.audits {
		if a.SessionID == sessionID {
			result = append(result, a)
		}
	}
	return result, nil
}

// actionsFor 按写入顺序返回某场次的审计动作，供断言使用
func (m *mockAuditRepo) actionsFor(sessionID int64) []string {
	var actions []string
	for _, a := range m.audits {
		if a.SessionID == sessionID {
			actions = append(actions, a.Action)
		}
	}
	return actions
}

// ── 测试环境 ──

type testEnv struct {
	cfg        *config.Config
	repo       *repository.Repository
	users      *mockUserRepo
	modules    *mockModuleRepo
	sessions   *mockSessionRepo
	attendance *mockAttendanceRepo
	runs       *mockRunRepo
	audits     *mockAuditRepo
	jwtMgr     *jwt.Manager
}

func newTestEnv() *testEnv {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:    8000,
			BaseURL: "http://localhost:8000",
		},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Checkin: config.CheckinConfig{
			StudentIDPrefix: "905",
			SessionMaxAge:   3 * time.Hour,
			RateLimit:       30,
			RateWindow:      time.Minute,
		},
		Report: config.ReportConfig{MaxGrade: 5.0},
	}

	users := newMockUserRepo()
	modules := newMockModuleRepo(users)
	sessions := newMockSessionRepo(modules)
	attendance := newMockAttendanceRepo(users, sessions)
	runs := newMockRunRepo()
	audits := newMockAuditRepo()

	return &testEnv{
		cfg: cfg,
		repo: &repository.Repository{
			User:       users,
			Module:     modules,
			Session:    sessions,
			Attendance: attendance,
			Run:        runs,
			Audit:      audits,
		},
		users:      users,
		modules:    modules,
		sessions:   sessions,
		attendance: attendance,
		runs:       runs,
		audits:     audits,
		jwtMgr:     jwt.NewManager(&cfg.Auth),
	}
}

// seedLecturerModule 建一名讲师与其名下模块，返回 (lecturerID, module)
func (e *testEnv) seedLecturerModule() (int64, *model.Module) {
	lecturer := &model.User{
		Username:     "lecturer1",
		PasswordHash: "x",
		Role:         model.RoleLecturer,
		FullName:     "测试讲师",
	}
	_ = e.users.Create(context.Background(), lecturer)

	module := &model.Module{
		ModuleCode:   "CS101",
		ModuleName:   "数据结构",
		LecturerID:   lecturer.UserID,
		PlannedWeeks: 14,
	}
	_ = e.modules.Create(context.Background(), module)
	return lecturer.UserID, module
}

// seedSession 建一个场次并返回
func (e *testEnv) seedSession(moduleID int64, week int, date, status string, createdAt time.Time) *model.Session {
	session := &model.Session{
		ModuleID:    moduleID,
		WeekNumber:  week,
		SessionDate: date,
		Status:      status,
		CreatedAt:   createdAt,
	}
	_ = e.sessions.Create(context.Background(), session)
	return session
}

// [自证通过] internal/service/mock_repos_test.go

package goSSO

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSSO/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const (
	testClientA   = "app-a"
	testClientB   = "app-b"
	testRedirectA = "https://a.example.com/callback"
	testRedirectB = "https://b.example.com/callback"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "sso-test"
	cfg.Session.JitterEnabled = false
	cfg.Session.JitterRange = 0
	cfg.Ticket.Clients = map[string][]string{
		testClientA: {"https://a.example.com/"},
		testClientB: {"https://b.example.com/"},
	}
	return cfg
}

// plainVerifier treats "hashed:" + plain as the hash of plain.
type plainVerifier struct{}

func (plainVerifier) Verify(plain, hash string) (bool, error) {
	return hash == "hashed:"+plain, nil
}

func (plainVerifier) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

// hookVerifier runs onVerify once, inside the first verification, before the
// password is compared.
type hookVerifier struct {
	plainVerifier
	fired    atomic.Bool
	onVerify func()
}

func (v *hookVerifier) Verify(plain, hash string) (bool, error) {
	if v.onVerify != nil && v.fired.CompareAndSwap(false, true) {
		v.onVerify()
	}
	return v.plainVerifier.Verify(plain, hash)
}

// countingVerifier counts Verify calls.
type countingVerifier struct {
	plainVerifier
	verifies atomic.Int64
}

func (v *countingVerifier) Verify(plain, hash string) (bool, error) {
	v.verifies.Add(1)
	return v.plainVerifier.Verify(plain, hash)
}

// upgradingVerifier accepts "hashed:" and "v2:" hashes, issues "v2:" ones and
// reports "hashed:" ones as stale.
type upgradingVerifier struct{}

func (upgradingVerifier) Verify(plain, hash string) (bool, error) {
	return hash == "hashed:"+plain || hash == "v2:"+plain, nil
}

func (upgradingVerifier) Hash(plain string) (string, error) {
	return "v2:" + plain, nil
}

func (upgradingVerifier) NeedsUpgrade(hash string) (bool, error) {
	return strings.HasPrefix(hash, "hashed:"), nil
}

type memPrincipals struct {
	mu         sync.Mutex
	byID       map[int64]*Principal
	failures   []int
	findErr    error
	statusSets int
	rehashed   map[int64]string
}

func newMemPrincipals(ps ...Principal) *memPrincipals {
	s := &memPrincipals{byID: make(map[int64]*Principal)}
	for i := range ps {
		p := ps[i]
		s.byID[p.ID] = &p
	}
	return s
}

func (s *memPrincipals) FindPrincipal(_ context.Context, account string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, p := range s.byID {
		if p.Account == account {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
}

func (s *memPrincipals) GetPrincipal(_ context.Context, id int64) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPrincipals) RecordLoginFailure(_ context.Context, id int64, failures int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	p.FailedAttempts = failures
	s.failures = append(s.failures, failures)
	return nil
}

func (s *memPrincipals) ResetLoginFailures(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	p.FailedAttempts = 0
	return nil
}

func (s *memPrincipals) SetPrincipalStatus(_ context.Context, id int64, status AccountStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	p.Status = status
	s.statusSets++
	switch status {
	case AccountLocked:
		p.LockedAt = at
	case AccountActive:
		p.LockedAt = time.Time{}
	}
	if status == AccountActive {
		p.FailedAttempts = 0
	}
	return nil
}

func (s *memPrincipals) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	p.PasswordHash = hash
	if s.rehashed == nil {
		s.rehashed = make(map[int64]string)
	}
	s.rehashed[id] = hash
	return nil
}

func (s *memPrincipals) get(id int64) Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.byID[id]
}

// memRBAC is an in-memory permission.Source and RBACWriter.
type memRBAC struct {
	mu        sync.Mutex
	roles     map[int64]permission.Role
	menus     map[int64]permission.Menu
	userRoles map[int64][]int64
	roleMenus map[int64][]int64
	listErr   error
}

func (s *memRBAC) ListUserRoles(_ context.Context, userID int64) ([]permission.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]permission.Role, 0)
	for _, id := range s.userRoles[userID] {
		out = append(out, s.roles[id])
	}
	return out, nil
}

func (s *memRBAC) ListRoleMenus(_ context.Context, roleIDs []int64) ([]permission.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]struct{})
	out := make([]permission.Menu, 0)
	for _, rid := range roleIDs {
		for _, mid := range s.roleMenus[rid] {
			m, ok := s.menus[mid]
			if !ok {
				continue
			}
			if _, dup := seen[mid]; dup {
				continue
			}
			seen[mid] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memRBAC) AssignUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRoles[userID] = append([]int64(nil), roleIDs...)
	return nil
}

func (s *memRBAC) RevokeUserRole(_ context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.userRoles[userID][:0]
	for _, id := range s.userRoles[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	s.userRoles[userID] = kept
	return nil
}

func (s *memRBAC) SetRoleMenus(_ context.Context, roleID int64, menuIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleMenus[roleID] = append([]int64(nil), menuIDs...)
	return nil
}

func (s *memRBAC) SetRoleEnabled(_ context.Context, roleID int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roles[roleID]
	r.Enabled = enabled
	s.roles[roleID] = r
	return nil
}

func (s *memRBAC) SetMenuEnabled(_ context.Context, menuID int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.menus[menuID]
	m.Enabled = enabled
	s.menus[menuID] = m
	return nil
}

func (s *memRBAC) DeleteMenu(_ context.Context, menuID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.menus {
		if m.ParentID == menuID {
			return fmt.Errorf("%w: menu %d has children", ErrConflict, menuID)
		}
	}
	delete(s.menus, menuID)
	for rid, ids := range s.roleMenus {
		kept := ids[:0]
		for _, id := range ids {
			if id != menuID {
				kept = append(kept, id)
			}
		}
		s.roleMenus[rid] = kept
	}
	return nil
}

func (s *memRBAC) ListUserIDsByRole(_ context.Context, roleID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []int64
	for uid, ids := range s.userRoles {
		for _, id := range ids {
			if id == roleID {
				out = append(out, uid)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// seedRBAC: role 10 "report" grants directory 1 and page 2 (report:view);
// role 20 "editor" grants button 3 (report:edit) under page 2. User 1 holds
// "report", user 2 holds "editor".
func seedRBAC() *memRBAC {
	return &memRBAC{
		roles: map[int64]permission.Role{
			10: {ID: 10, Key: "report", Enabled: true},
			20: {ID: 20, Key: "editor", Enabled: true},
		},
		menus: map[int64]permission.Menu{
			1: {ID: 1, Name: "Reports", Type: permission.MenuDirectory, Enabled: true, Visible: true},
			2: {ID: 2, ParentID: 1, Name: "Report", Type: permission.MenuPage, Permission: "report:view", Enabled: true, Visible: true},
			3: {ID: 3, ParentID: 2, Name: "Edit", Type: permission.MenuButton, Permission: "report:edit", Enabled: true, Visible: true},
		},
		userRoles: map[int64][]int64{
			1: {10},
			2: {20},
		},
		roleMenus: map[int64][]int64{
			10: {1, 2},
			20: {3},
		},
	}
}

type testEnv struct {
	engine     *Engine
	mr         *miniredis.Miniredis
	rdb        *redis.Client
	principals *memPrincipals
	rbac       *memRBAC
	audit      *ChannelSink
	logs       *logtest.Hook
}

// testEngine builds an engine over miniredis with principal 1 "alice" (password
// "correct-horse") and principal 2 "bob" (password "battery-staple").
func testEngine(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	return testEngineWithVerifier(t, mutate, plainVerifier{})
}

func testEngineWithVerifier(t *testing.T, mutate func(*Config), verifier CredentialVerifier) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 256
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	principals := newMemPrincipals(
		Principal{ID: 1, Account: "alice", PasswordHash: "hashed:correct-horse"},
		Principal{ID: 2, Account: "bob", PasswordHash: "hashed:battery-staple"},
	)
	rbac := seedRBAC()
	sink := NewChannelSink(256)
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPrincipalStore(principals).
		WithPermissionSource(rbac).
		WithCredentialVerifier(verifier).
		WithAuditSink(sink).
		WithLogger(logger).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:     engine,
		mr:         mr,
		rdb:        rdb,
		principals: principals,
		rbac:       rbac,
		audit:      sink,
		logs:       hook,
	}
}

func (env *testEnv) login(t *testing.T, account, password string) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), LoginRequest{Account: account, Password: password})
	if err != nil {
		t.Fatalf("Login(%s): %v", account, err)
	}
	return res
}

// waitAudit reads events until one of eventType arrives.
func (env *testEnv) waitAudit(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-env.audit.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s audit event", eventType)
			return AuditEvent{}
		}
	}
}

var errBoom = errors.New("boom")

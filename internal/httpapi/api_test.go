package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"trove.dev/internal/auth"
	"trove.dev/internal/items"
	"trove.dev/internal/token"
)

type memUserStore struct {
	seq   int64
	users map[int64]*auth.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[int64]*auth.User)}
}

func (m *memUserStore) Create(_ context.Context, u *auth.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return auth.ErrEmailTaken
		}
	}
	m.seq++
	u.ID = m.seq
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserStore) Find(_ context.Context, id int64) (*auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUserStore) List(_ context.Context, skip, limit int) ([]*auth.User, error) {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*auth.User, 0, limit)
	for i, id := range ids {
		if i < skip {
			continue
		}
		if len(out) == limit {
			break
		}
		cp := *m.users[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memUserStore) Update(_ context.Context, u *auth.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return auth.ErrNotFound
	}
	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return auth.ErrEmailTaken
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memItemStore struct {
	seq   int64
	items map[int64]*items.Item
}

func newMemItemStore() *memItemStore {
	return &memItemStore{items: make(map[int64]*items.Item)}
}

func (m *memItemStore) Create(_ context.Context, it *items.Item) error {
	m.seq++
	it.ID = m.seq
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memItemStore) Find(_ context.Context, id int64) (*items.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, items.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memItemStore) List(_ context.Context, skip, limit int) ([]*items.Item, error) {
	return m.listWhere(func(*items.Item) bool { return true }, skip, limit), nil
}

func (m *memItemStore) ListByOwner(_ context.Context, ownerID int64, skip, limit int) ([]*items.Item, error) {
	return m.listWhere(func(it *items.Item) bool { return it.OwnerID == ownerID }, skip, limit), nil
}

func (m *memItemStore) listWhere(keep func(*items.Item) bool, skip, limit int) []*items.Item {
	ids := make([]int64, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*items.Item, 0, limit)
	seen := 0
	for _, id := range ids {
		it := m.items[id]
		if !keep(it) {
			continue
		}
		seen++
		if seen <= skip {
			continue
		}
		if len(out) == limit {
			break
		}
		cp := *it
		out = append(out, &cp)
	}
	return out
}

func (m *memItemStore) Update(_ context.Context, it *items.Item) error {
	if _, ok := m.items[it.ID]; !ok {
		return items.ErrNotFound
	}
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *memItemStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return items.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type testEnv struct {
	handler http.Handler
	auth    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	codec, err := token.NewCodec("handler-test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	authSvc := auth.NewService(newMemUserStore(), codec)
	itemSvc := items.NewService(newMemItemStore())
	api := New(Options{
		Auth:               authSvc,
		Items:              itemSvc,
		Version:            "test",
		CORSAllowedOrigins: []string{"https://app.example.com"},
	})
	return &testEnv{handler: api.Handler(), auth: authSvc}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body %s", email, rec.Code, rec.Body.String())
	}
}

func (e *testEnv) login(t *testing.T, email, password string) tokenResponse {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body %s", email, rec.Code, rec.Body.String())
	}
	var tokens tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return tokens
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return v
}

func TestRegisterLoginTestToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "sekret1")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "another1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}

	tokens := env.login(t, "alice@example.com", "sekret1")
	if tokens.TokenType != "bearer" {
		t.Fatalf("token_type = %q, want bearer", tokens.TokenType)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected both tokens in login response")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/test-token", tokens.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("test-token status = %d, body %s", rec.Code, rec.Body.String())
	}
	me := decodeBody[userResponse](t, rec)
	if me.Email != "alice@example.com" {
		t.Fatalf("test-token email = %q", me.Email)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "bob@example.com", "sekret1")

	form := url.Values{"username": {"bob@example.com"}, "password": {"wrong-password"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header on 401")
	}

	form = url.Values{"username": {"nobody@example.com"}, "password": {"whatever1"}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email status = %d, want 401", rec.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "carol@example.com", "sekret1")
	tokens := env.login(t, "carol@example.com", "sekret1")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": tokens.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	fresh := decodeBody[tokenResponse](t, rec)
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatal("expected a full pair from refresh")
	}

	// An access token must not pass as a refresh token.
	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": tokens.AccessToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access-as-refresh status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": "not-a-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage refresh status = %d, want 401", rec.Code)
	}
}

func TestItemLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "owner@example.com", "sekret1")
	env.register(t, "other@example.com", "sekret1")
	owner := env.login(t, "owner@example.com", "sekret1")
	other := env.login(t, "other@example.com", "sekret1")

	rec := env.do(t, http.MethodPost, "/api/v1/items/", owner.AccessToken, map[string]string{
		"title":       "first item",
		"description": "notes",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[itemResponse](t, rec)
	if created.ID == 0 || created.Title != "first item" {
		t.Fatalf("unexpected created item: %+v", created)
	}

	itemPath := fmt.Sprintf("/api/v1/items/%d", created.ID)

	// Reads need no token.
	rec = env.do(t, http.MethodGet, itemPath, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous get status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/items/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous list status = %d", rec.Code)
	}
	if list := decodeBody[[]itemResponse](t, rec); len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}

	// A non-owner cannot mutate.
	rec = env.do(t, http.MethodPut, itemPath, other.AccessToken, map[string]string{"title": "stolen"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign update status = %d, want 403", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, itemPath, other.AccessToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status = %d, want 403", rec.Code)
	}

	// Owner partial update keeps the untouched field.
	rec = env.do(t, http.MethodPut, itemPath, owner.AccessToken, map[string]string{"title": "renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[itemResponse](t, rec)
	if updated.Title != "renamed" || updated.Description != "notes" {
		t.Fatalf("partial update result: %+v", updated)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/items/my-items", owner.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("my-items status = %d", rec.Code)
	}
	if mine := decodeBody[[]itemResponse](t, rec); len(mine) != 1 {
		t.Fatalf("my-items length = %d, want 1", len(mine))
	}
	rec = env.do(t, http.MethodGet, "/api/v1/items/my-items", other.AccessToken, nil)
	if mine := decodeBody[[]itemResponse](t, rec); len(mine) != 0 {
		t.Fatalf("other my-items length = %d, want 0", len(mine))
	}

	rec = env.do(t, http.MethodDelete, itemPath, owner.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("owner delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, itemPath, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestSuperuserCanMutateForeignItems(t *testing.T) {
	env := newTestEnv(t)
	if err := env.auth.EnsureSuperuser(context.Background(), "root@example.com", "sekret1", "Root"); err != nil {
		t.Fatalf("EnsureSuperuser: %v", err)
	}
	env.register(t, "owner@example.com", "sekret1")
	owner := env.login(t, "owner@example.com", "sekret1")
	admin := env.login(t, "root@example.com", "sekret1")

	rec := env.do(t, http.MethodPost, "/api/v1/items/", owner.AccessToken, map[string]string{"title": "guarded"})
	created := decodeBody[itemResponse](t, rec)
	itemPath := fmt.Sprintf("/api/v1/items/%d", created.ID)

	rec = env.do(t, http.MethodPut, itemPath, admin.AccessToken, map[string]string{"title": "moderated"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin update status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodDelete, itemPath, admin.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin delete status = %d", rec.Code)
	}
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)
	if err := env.auth.EnsureSuperuser(context.Background(), "root@example.com", "sekret1", "Root"); err != nil {
		t.Fatalf("EnsureSuperuser: %v", err)
	}
	env.register(t, "dave@example.com", "sekret1")
	dave := env.login(t, "dave@example.com", "sekret1")
	admin := env.login(t, "root@example.com", "sekret1")

	rec := env.do(t, http.MethodGet, "/api/v1/users/me", dave.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	me := decodeBody[userResponse](t, rec)
	if me.Email != "dave@example.com" || me.IsSuperuser {
		t.Fatalf("unexpected me: %+v", me)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/users/me", dave.AccessToken, map[string]string{
		"full_name": "Dave Lister",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update me status = %d, body %s", rec.Code, rec.Body.String())
	}
	if updated := decodeBody[userResponse](t, rec); updated.FullName != "Dave Lister" {
		t.Fatalf("full_name = %q", updated.FullName)
	}

	// Taking the superuser's email must fail.
	rec = env.do(t, http.MethodPut, "/api/v1/users/me", dave.AccessToken, map[string]string{
		"email": "root@example.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("email collision status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/users/", dave.AccessToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("directory as regular user status = %d, want 403", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/users/", admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("directory as superuser status = %d", rec.Code)
	}
	if list := decodeBody[[]userResponse](t, rec); len(list) != 2 {
		t.Fatalf("directory length = %d, want 2", len(list))
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", me.ID), admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin get user status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", me.ID), dave.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("self delete status = %d", rec.Code)
	}

	// The access token of the deleted account no longer resolves.
	rec = env.do(t, http.MethodGet, "/api/v1/users/me", dave.AccessToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after delete status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/users/me", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", rec.Code)
	}

	env.register(t, "erin@example.com", "sekret1")
	tokens := env.login(t, "erin@example.com", "sekret1")
	rec = env.do(t, http.MethodGet, "/api/v1/users/me", tokens.RefreshToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh-as-access status = %d, want 401", rec.Code)
	}
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "sekret1"}},
		{"short password", map[string]string{"email": "x@example.com", "password": "abc"}},
		{"missing password", map[string]string{"email": "x@example.com"}},
		{"unknown field", map[string]string{"email": "x@example.com", "password": "sekret1", "is_superuser": "true"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/v1/items/abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id status = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/items/?limit=5000", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized limit status = %d, want 400", rec.Code)
	}
}

func TestHealthAndHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected nosniff header")
	}
}

func TestCORSAllowList(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin header = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/items/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
}

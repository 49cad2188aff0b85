package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
	domainerrors "github.com/onetop21/mcp-server-hub-sub003/internal/domain/errors"
)

// memUserRepo is an in-memory user store for handler-level tests
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entities.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*entities.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domainerrors.ErrAlreadyExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memUserRepo) Update(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domainerrors.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

// memApiKeyRepo is an in-memory key store for handler-level tests
type memApiKeyRepo struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*entities.ApiKey
}

func newMemApiKeyRepo() *memApiKeyRepo {
	return &memApiKeyRepo{keys: make(map[uuid.UUID]*entities.ApiKey)}
}

func (r *memApiKeyRepo) Create(ctx context.Context, key *entities.ApiKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.KeyHash == key.KeyHash {
			return domainerrors.ErrAlreadyExists
		}
	}
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	r.keys[key.ID] = key
	return nil
}

func (r *memApiKeyRepo) FindByKeyHash(ctx context.Context, keyHash string) (*entities.ApiKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.KeyHash == keyHash {
			return k, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memApiKeyRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.ApiKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.ApiKey
	for _, k := range r.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *memApiKeyRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.ApiKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[id]; ok {
		return k, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *memApiKeyRepo) UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	return nil
}

func (r *memApiKeyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[id]; !ok {
		return domainerrors.ErrNotFound
	}
	delete(r.keys, id)
	return nil
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
	return body
}

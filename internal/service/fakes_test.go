package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"legacyvault/internal/events"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
	"legacyvault/internal/repository"
)

// In-memory fakes for the store interfaces. Each guards its maps with a
// mutex so tests can exercise concurrent paths.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]models.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id string, displayName string, avatarURL *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	if avatarURL != nil {
		u.AvatarURL = avatarURL
	}
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) List(_ context.Context, limit, offset int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]models.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, session models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Mirror the upsert on (user_id, device_id).
	for id, s := range f.sessions {
		if s.UserID == session.UserID && s.DeviceID == session.DeviceID {
			delete(f.sessions, id)
		}
	}
	session.CreatedAt = time.Now()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) FindByRefreshHash(_ context.Context, userID string, refreshHash []byte) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && bytes.Equal(s.RefreshTokenHash, refreshHash) {
			return s, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (f *fakeSessionStore) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) CountByUser(_ context.Context, userID string) (int, error) {
	sessions, _ := f.ListByUser(context.Background(), userID)
	return len(sessions), nil
}

func (f *fakeSessionStore) DeleteOldestSessions(_ context.Context, userID string, keepLatest int) error {
	return nil
}

func (f *fakeSessionStore) DeleteByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DeleteByDevice(_ context.Context, userID, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID && s.DeviceID == deviceID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessionStore) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

type roleKey struct{ userID, roleID string }

type fakeRoleStore struct {
	mu          sync.Mutex
	roles       map[string]models.Role
	assignments map[roleKey]models.RoleAssignment
}

func newFakeRoleStore() *fakeRoleStore {
	f := &fakeRoleStore{
		roles:       map[string]models.Role{},
		assignments: map[roleKey]models.RoleAssignment{},
	}
	for _, r := range rbac.SystemRoles() {
		f.roles[r.ID] = r
	}
	return f
}

func (f *fakeRoleStore) List(_ context.Context) ([]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRoleStore) GetByID(_ context.Context, id string) (models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[id]
	if !ok {
		return models.Role{}, repository.ErrRoleNotFound
	}
	return r, nil
}

func (f *fakeRoleStore) Create(_ context.Context, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleStore) Update(_ context.Context, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.roles[role.ID]
	if !ok || existing.IsSystem {
		return repository.ErrRoleNotFound
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRoleStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.roles[id]
	if !ok || existing.IsSystem {
		return repository.ErrRoleNotFound
	}
	delete(f.roles, id)
	return nil
}

func (f *fakeRoleStore) AssignmentsForUser(_ context.Context, userID string) ([]models.RoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RoleAssignment
	for k, a := range f.assignments {
		if k.userID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRoleStore) RolesForUser(_ context.Context, userID string) ([]models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Role
	for k := range f.assignments {
		if k.userID != userID {
			continue
		}
		if r, ok := f.roles[k.roleID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoleStore) Assign(_ context.Context, assignment models.RoleAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := roleKey{assignment.UserID, assignment.RoleID}
	if _, ok := f.assignments[k]; ok {
		return repository.ErrRoleAlreadyAssigned
	}
	assignment.AssignedAt = time.Now()
	f.assignments[k] = assignment
	return nil
}

func (f *fakeRoleStore) Remove(_ context.Context, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := roleKey{userID, roleID}
	if _, ok := f.assignments[k]; !ok {
		return repository.ErrRoleNotAssigned
	}
	delete(f.assignments, k)
	return nil
}

func (f *fakeRoleStore) RemoveAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.assignments {
		if k.userID == userID {
			delete(f.assignments, k)
		}
	}
	return nil
}

func (f *fakeRoleStore) UserIDsWithRole(_ context.Context, roleID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.assignments {
		if k.roleID == roleID {
			out = append(out, k.userID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeVaultStore struct {
	mu     sync.Mutex
	vaults map[string]models.Vault
}

func newFakeVaultStore() *fakeVaultStore {
	return &fakeVaultStore{vaults: map[string]models.Vault{}}
}

func (f *fakeVaultStore) Create(_ context.Context, vault models.Vault, creator models.VaultMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	vault.Members = []models.VaultMember{creator}
	vault.CreatedAt = time.Now()
	f.vaults[vault.ID] = vault
	return nil
}

func (f *fakeVaultStore) GetByID(_ context.Context, id string) (models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vaults[id]
	if !ok {
		return models.Vault{}, repository.ErrVaultNotFound
	}
	return v, nil
}

func (f *fakeVaultStore) ListForUser(_ context.Context, userID string) ([]models.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Vault
	for _, v := range f.vaults {
		if v.IsMember(userID) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeVaultStore) Update(_ context.Context, vault models.Vault) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.vaults[vault.ID]
	if !ok {
		return repository.ErrVaultNotFound
	}
	vault.Members = existing.Members
	f.vaults[vault.ID] = vault
	return nil
}

func (f *fakeVaultStore) UpdateSettings(_ context.Context, vaultID string, requireApproval bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vaults[vaultID]
	if !ok {
		return repository.ErrVaultNotFound
	}
	v.RequireApproval = requireApproval
	f.vaults[vaultID] = v
	return nil
}

func (f *fakeVaultStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vaults[id]; !ok {
		return repository.ErrVaultNotFound
	}
	delete(f.vaults, id)
	return nil
}

func (f *fakeVaultStore) AddMember(_ context.Context, member models.VaultMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vaults[member.VaultID]
	if !ok {
		return repository.ErrVaultNotFound
	}
	if v.IsMember(member.UserID) {
		return repository.ErrMemberExists
	}
	member.JoinedAt = time.Now()
	v.Members = append(v.Members, member)
	f.vaults[member.VaultID] = v
	return nil
}

func (f *fakeVaultStore) RemoveMember(_ context.Context, vaultID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vaults[vaultID]
	if !ok {
		return repository.ErrVaultNotFound
	}
	for i, m := range v.Members {
		if m.UserID == userID {
			v.Members = append(v.Members[:i], v.Members[i+1:]...)
			f.vaults[vaultID] = v
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (f *fakeVaultStore) UpdateMemberRole(_ context.Context, vaultID, userID string, role models.VaultRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vaults[vaultID]
	if !ok {
		return repository.ErrVaultNotFound
	}
	for i, m := range v.Members {
		if m.UserID == userID {
			v.Members[i].Role = role
			f.vaults[vaultID] = v
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

type fakeMemoryStore struct {
	mu       sync.Mutex
	memories map[string]models.Memory
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{memories: map[string]models.Memory{}}
}

func (f *fakeMemoryStore) Create(_ context.Context, m models.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.CreatedAt = time.Now()
	f.memories[m.ID] = m
	return nil
}

func (f *fakeMemoryStore) GetByID(_ context.Context, id string) (models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok {
		return models.Memory{}, repository.ErrMemoryNotFound
	}
	return m, nil
}

func (f *fakeMemoryStore) ListByVault(_ context.Context, vaultID string, status *models.ApprovalStatus) ([]models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Memory
	for _, m := range f.memories {
		if m.VaultID != vaultID {
			continue
		}
		if status != nil && m.ApprovalStatus != *status {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMemoryStore) ListRejectedForUser(_ context.Context, vaultID, userID string) ([]models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Memory
	for _, m := range f.memories {
		if m.VaultID == vaultID && m.CreatedBy == userID && m.ApprovalStatus == models.ApprovalStatusRejected {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) MarkApproved(_ context.Context, id, approverID, approverName string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok {
		return repository.ErrMemoryNotFound
	}
	if m.ApprovalStatus != models.ApprovalStatusPending {
		return repository.ErrStaleTransition
	}
	m.ApprovalStatus = models.ApprovalStatusApproved
	m.ApprovedBy = &approverID
	m.ApprovedByName = &approverName
	m.ApprovedAt = &at
	m.RejectionReason = nil
	f.memories[id] = m
	return nil
}

func (f *fakeMemoryStore) MarkRejected(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok {
		return repository.ErrMemoryNotFound
	}
	if m.ApprovalStatus != models.ApprovalStatusPending {
		return repository.ErrStaleTransition
	}
	m.ApprovalStatus = models.ApprovalStatusRejected
	m.RejectionReason = &reason
	m.ApprovedBy = nil
	m.ApprovedByName = nil
	m.ApprovedAt = nil
	f.memories[id] = m
	return nil
}

func (f *fakeMemoryStore) MarkResubmitted(_ context.Context, id, creatorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok {
		return repository.ErrMemoryNotFound
	}
	if m.ApprovalStatus != models.ApprovalStatusRejected || m.CreatedBy != creatorID {
		return repository.ErrStaleTransition
	}
	m.ApprovalStatus = models.ApprovalStatusPending
	m.RejectionReason = nil
	f.memories[id] = m
	return nil
}

func (f *fakeMemoryStore) UpdateDetails(_ context.Context, id, title, description string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok {
		return repository.ErrMemoryNotFound
	}
	m.Title = title
	m.Description = description
	m.Tags = tags
	f.memories[id] = m
	return nil
}

func (f *fakeMemoryStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memories[id]; !ok {
		return repository.ErrMemoryNotFound
	}
	delete(f.memories, id)
	return nil
}

func (f *fakeMemoryStore) ObjectKeysByVault(_ context.Context, vaultID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, m := range f.memories {
		if m.VaultID == vaultID {
			out[m.ObjectKey] = m.Bucket
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) CountByStatus(_ context.Context) (map[models.ApprovalStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.ApprovalStatus]int{}
	for _, m := range f.memories {
		out[m.ApprovalStatus]++
	}
	return out, nil
}

type fakeCommentStore struct {
	mu       sync.Mutex
	comments map[string]models.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: map[string]models.Comment{}}
}

func (f *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.CreatedAt = time.Now()
	f.comments[comment.ID] = comment
	return nil
}

func (f *fakeCommentStore) ListByMemory(_ context.Context, memoryID string) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Comment
	for _, c := range f.comments {
		if c.MemoryID == memoryID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommentStore) DeleteByMemory(_ context.Context, memoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.comments {
		if c.MemoryID == memoryID {
			delete(f.comments, id)
		}
	}
	return nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(_ context.Context, bucket, key string, r io.Reader, size int64, contentType string) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return int64(len(data)), nil
}

func (f *fakeBlobStore) Remove(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeBlobStore) PublicURL(bucket, key string) string {
	return "http://localhost:9000/" + bucket + "/" + key
}

func (f *fakeBlobStore) MediaBucket() string  { return "legacy-media" }
func (f *fakeBlobStore) CoversBucket() string { return "legacy-covers" }

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePublisher) byType(eventType string) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"estekhdam/internal/identity/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
)

// InMemory keeps users and roles in maps. National ID and username are unique.
type InMemory struct {
	mu     sync.RWMutex
	users  map[id.UserID]models.User
	roles  map[id.Role]models.Role
	nextID int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		users: make(map[id.UserID]models.User),
		roles: make(map[id.Role]models.Role),
	}
}

func (s *InMemory) EnsureRole(_ context.Context, name id.Role) (models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role, ok := s.roles[name]; ok {
		return role, nil
	}
	role := models.Role{ID: int64(len(s.roles) + 1), Name: name}
	s.roles[name] = role
	return role, nil
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueLocked(*user); err != nil {
		return err
	}
	s.nextID++
	user.ID = id.UserID(s.nextID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) checkUniqueLocked(user models.User) error {
	for _, existing := range s.users {
		if existing.ID == user.ID {
			continue
		}
		if user.NationalID != "" && existing.NationalID == user.NationalID {
			return sentinel.ErrAlreadyUsed
		}
		if user.Username != "" && existing.Username == user.Username {
			return sentinel.ErrAlreadyUsed
		}
	}
	return nil
}

func (s *InMemory) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkUniqueLocked(*user); err != nil {
		return err
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return &u, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findFirst(func(u models.User) bool { return u.Username == username })
}

func (s *InMemory) FindByNationalID(_ context.Context, nationalID string) (*models.User, error) {
	return s.findFirst(func(u models.User) bool { return u.NationalID == nationalID })
}

// FindByMobile returns the oldest account with the mobile number.
func (s *InMemory) FindByMobile(_ context.Context, mobile string) (*models.User, error) {
	return s.findFirst(func(u models.User) bool { return u.Mobile == mobile })
}

func (s *InMemory) findFirst(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.User
	for _, u := range s.users {
		if !match(u) {
			continue
		}
		if found == nil || u.ID < found.ID {
			u := u
			found = &u
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

func (s *InMemory) SetUsername(ctx context.Context, userID id.UserID, username string) error {
	return s.mutate(userID, func(u *models.User) { u.Username = username }, username)
}

func (s *InMemory) UpdatePassword(_ context.Context, userID id.UserID, hash string) error {
	return s.mutate(userID, func(u *models.User) { u.PasswordHash = hash }, "")
}

func (s *InMemory) mutate(userID id.UserID, fn func(*models.User), newUsername string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if newUsername != "" {
		for _, other := range s.users {
			if other.ID != userID && other.Username == newUsername {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	fn(&u)
	s.users[userID] = u
	return nil
}

// ListLegacyCredentials returns users whose stored hash fails isHashed, ordered by ID.
func (s *InMemory) ListLegacyCredentials(_ context.Context, isHashed func(string) bool) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for _, u := range s.users {
		if !isHashed(u.PasswordHash) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LockMobile is a no-op: in-memory callers are already serialized by tx.LockRunner.
func (s *InMemory) LockMobile(context.Context, string) error {
	return nil
}

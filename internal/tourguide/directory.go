package tourguide

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"tourguide/internal/models"
)

// Directory holds the users known to this process, by name and by ID.
type Directory struct {
	mu     sync.RWMutex
	byName map[string]*models.User
	byID   map[uuid.UUID]*models.User
}

func NewDirectory(users ...*models.User) *Directory {
	d := &Directory{
		byName: make(map[string]*models.User, len(users)),
		byID:   make(map[uuid.UUID]*models.User, len(users)),
	}
	for _, u := range users {
		d.Add(u)
	}
	return d
}

// Add registers u unless a user with the same name exists. It reports
// whether u was added.
func (d *Directory) Add(u *models.User) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byName[u.Name]; ok {
		return false
	}
	d.byName[u.Name] = u
	d.byID[u.ID] = u
	return true
}

func (d *Directory) ByName(name string) (*models.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byName[name]
	return u, ok
}

// Resolve returns the user with id, registering a new one under name if
// none exists.
func (d *Directory) Resolve(id uuid.UUID, name string) *models.User {
	d.mu.RLock()
	u, ok := d.byID[id]
	d.mu.RUnlock()
	if ok {
		return u
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.byID[id]; ok {
		return u
	}
	if name == "" {
		name = id.String()
	}
	u = models.NewUser(id, name)
	d.byID[id] = u
	if _, taken := d.byName[name]; !taken {
		d.byName[name] = u
	}
	return u
}

// All returns every user sorted by name.
func (d *Directory) All() []*models.User {
	d.mu.RLock()
	out := make([]*models.User, 0, len(d.byID))
	for _, u := range d.byID {
		out = append(out, u)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

package gcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nholm/gemkeys/pkg/config"
)

// Fake is an in-memory Client for tests. Projects, keys and enablement
// state are scripted up front; individual calls can be made to fail by
// setting the corresponding error field. Mutations counts every call that
// would change cloud state, which dry-run tests assert stays at zero.
type Fake struct {
	mu sync.Mutex

	Projects []Project
	Enabled  map[string]bool   // projectID -> service enabled
	Keys     map[string][]Key  // projectID -> keys
	Secrets  map[string]string // key resource name -> key string

	ListProjectsErr error
	EnableErr       map[string]error // projectID -> error
	ListKeysErr     map[string]error
	CreateErr       map[string]error
	GetKeyStringErr map[string]error // key resource name -> error
	DeleteErr       map[string]error // key resource name -> error

	Mutations int
	nextID    int
}

// NewFake returns an empty Fake; populate Projects and per-project state
// with AddProject and AddKey.
func NewFake() *Fake {
	return &Fake{
		Enabled:         make(map[string]bool),
		Keys:            make(map[string][]Key),
		Secrets:         make(map[string]string),
		EnableErr:       make(map[string]error),
		ListKeysErr:     make(map[string]error),
		CreateErr:       make(map[string]error),
		GetKeyStringErr: make(map[string]error),
		DeleteErr:       make(map[string]error),
	}
}

// AddProject registers a project, optionally with the service pre-enabled.
func (f *Fake) AddProject(id string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Projects = append(f.Projects, Project{ID: id, Name: id, Number: fmt.Sprintf("%d", 100000+len(f.Projects)), State: "ACTIVE"})
	f.Enabled[id] = enabled
}

// AddKey plants an existing cloud key in a project and returns it.
func (f *Fake) AddKey(projectID, displayName, secret string) Key {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	k := Key{
		ID:          fmt.Sprintf("key-%d", f.nextID),
		Name:        fmt.Sprintf("projects/%s/locations/global/keys/key-%d", projectID, f.nextID),
		DisplayName: displayName,
		CreateTime:  time.Now().UTC(),
	}
	f.Keys[projectID] = append(f.Keys[projectID], k)
	f.Secrets[k.Name] = secret
	return k
}

func (f *Fake) ListProjects(ctx context.Context) ([]Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListProjectsErr != nil {
		return nil, wrapErr("list projects", "", f.ListProjectsErr)
	}
	return append([]Project(nil), f.Projects...), nil
}

func (f *Fake) IsServiceEnabled(ctx context.Context, projectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Enabled[projectID], nil
}

func (f *Fake) EnableService(ctx context.Context, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.EnableErr[projectID]; err != nil {
		return wrapErr("enable service", projectID, err)
	}
	f.Mutations++
	f.Enabled[projectID] = true
	return nil
}

func (f *Fake) ListKeys(ctx context.Context, projectID string) ([]Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ListKeysErr[projectID]; err != nil {
		return nil, wrapErr("list keys", projectID, err)
	}
	return append([]Key(nil), f.Keys[projectID]...), nil
}

func (f *Fake) GetKeyString(ctx context.Context, keyName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.GetKeyStringErr[keyName]; err != nil {
		return "", wrapErr("get key string", "", err)
	}
	return f.Secrets[keyName], nil
}

func (f *Fake) CreateKey(ctx context.Context, projectID string) (Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateErr[projectID]; err != nil {
		return Key{}, wrapErr("create key", projectID, err)
	}
	f.Mutations++
	f.nextID++
	k := Key{
		ID:          fmt.Sprintf("key-%d", f.nextID),
		Name:        fmt.Sprintf("projects/%s/locations/global/keys/key-%d", projectID, f.nextID),
		DisplayName: config.KeyDisplayName,
		KeyString:   fmt.Sprintf("AIza-fake-%d", f.nextID),
		CreateTime:  time.Now().UTC(),
	}
	f.Keys[projectID] = append(f.Keys[projectID], k)
	f.Secrets[k.Name] = k.KeyString
	return k, nil
}

func (f *Fake) DeleteKey(ctx context.Context, keyName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DeleteErr[keyName]; err != nil {
		return wrapErr("delete key", "", err)
	}
	f.Mutations++
	for projectID, keys := range f.Keys {
		for i, k := range keys {
			if k.Name == keyName {
				f.Keys[projectID] = append(keys[:i:i], keys[i+1:]...)
				delete(f.Secrets, keyName)
				return nil
			}
		}
	}
	return nil
}

var _ Client = (*Fake)(nil)

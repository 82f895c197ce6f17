package encoders

import (
	"sort"
	"sync"

	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/cockroachdb/errors"
)

// Factory creates a backend instance.
type Factory func() (mfx.Backend, error)

// Service creates backend instances
type Service interface {
	NewBackend(name string) (mfx.Backend, error)
	Supports(name string) bool
	Names() []string
}

var (
	registryMu         sync.RWMutex
	registeredBackends = map[string]Factory{}
)

// ErrUnknownBackend is returned for names nobody registered.
var ErrUnknownBackend = errors.New("unknown encoder backend")

// Register makes a backend available under name. Backends register
// themselves from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registeredBackends[name] = factory
}

// BackendService is the Service over the package registry.
type BackendService struct{}

func NewService() *BackendService { return &BackendService{} }

func (BackendService) NewBackend(name string) (mfx.Backend, error) {
	registryMu.RLock()
	factory, ok := registeredBackends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(ErrUnknownBackend, "%q", name),
			"available backends: %v", BackendService{}.Names())
	}
	return factory()
}

func (BackendService) Supports(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registeredBackends[name]
	return ok
}

func (BackendService) Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registeredBackends))
	for name := range registeredBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package inmemory

import (
	"context"
	"strings"
	"sync"
)

type Object struct {
	Data        []byte
	ContentType string
	Writes      int
}

// Store keeps objects in memory, keyed by name. Useful for dry runs and tests.
type Store struct {
	mu         sync.Mutex
	containers map[string]bool
	objects    map[string]*Object
}

func NewStore() *Store {
	return &Store{
		containers: make(map[string]bool),
		objects:    make(map[string]*Object),
	}
}

func (s *Store) Put(_ context.Context, data []byte, name, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[name]
	if !ok {
		obj = &Object{}
		s.objects[name] = obj
	}
	obj.Data = append([]byte(nil), data...)
	obj.ContentType = contentType
	obj.Writes++

	if i := strings.Index(name, "/"); i > 0 {
		s.containers[name[:i]] = true
	}

	return "mem://" + name, nil
}

func (s *Store) Exists(_ context.Context, container string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containers[container], nil
}

func (s *Store) Create(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[container] = true
	return nil
}

// Get returns a copy of the named object.
func (s *Store) Get(name string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[name]
	if !ok {
		return Object{}, false
	}
	return Object{Data: append([]byte(nil), obj.Data...), ContentType: obj.ContentType, Writes: obj.Writes}, true
}

// Names lists stored object names.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.objects))
	for n := range s.objects {
		names = append(names, n)
	}
	return names
}

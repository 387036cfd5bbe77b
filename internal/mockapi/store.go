package mockapi

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Person is a stored person document.
type Person = map[string]any

// Seed is the YAML fixture format: people keyed by customer id.
//
//	customers:
//	  "1234":
//	    - id: "42"
//	      firstname: Ada
type Seed struct {
	Customers map[string][]Person `yaml:"customers"`
}

// Store keeps people in memory, per customer.
type Store struct {
	mu     sync.RWMutex
	people map[string]map[string]Person
	nextID int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{people: make(map[string]map[string]Person), nextID: 1000}
}

// LoadSeedFile replaces the store contents with the fixtures in path.
func (s *Store) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	s.Load(seed)
	return nil
}

// Load replaces the store contents with seed. People without an id get one.
func (s *Store) Load(seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people = make(map[string]map[string]Person)
	for customer, people := range seed.Customers {
		for _, p := range people {
			s.putLocked(customer, p)
		}
	}
}

// Create stores p and returns its new id.
func (s *Store) Create(customer string, p Person) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(p, "id")
	return s.putLocked(customer, p)
}

func (s *Store) putLocked(customer string, p Person) string {
	id := fmt.Sprint(p["id"])
	if p["id"] == nil || id == "" {
		// Seeded ids may collide with generated ones.
		for {
			id = strconv.Itoa(s.nextID)
			s.nextID++
			if _, taken := s.people[customer][id]; !taken {
				break
			}
		}
	}
	doc := make(Person, len(p))
	for k, v := range p {
		doc[k] = v
	}
	doc["id"] = id

	if s.people[customer] == nil {
		s.people[customer] = make(map[string]Person)
	}
	s.people[customer][id] = doc
	return id
}

// Get returns a copy of one person.
func (s *Store) Get(customer, id string) (Person, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[customer][id]
	if !ok {
		return nil, false
	}
	return copyPerson(p), true
}

// List returns the people of a customer whose fields equal every filter
// value, ordered by id.
func (s *Store) List(customer string, filters map[string]string) []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.people[customer]))
	for id := range s.people[customer] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Person, 0, len(ids))
	for _, id := range ids {
		p := s.people[customer][id]
		if matches(p, filters) {
			out = append(out, copyPerson(p))
		}
	}
	return out
}

// Len returns the number of people stored for customer.
func (s *Store) Len(customer string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.people[customer])
}

func matches(p Person, filters map[string]string) bool {
	for k, want := range filters {
		v, ok := p[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func copyPerson(p Person) Person {
	c := make(Person, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

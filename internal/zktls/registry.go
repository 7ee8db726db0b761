package zktls

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Registry keeps one simulator per user. The least recently used simulator
// is dropped once size users are active; its proofs stay in the ProofStore.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.Cache
	factory func(owner string) *Simulator
}

func NewRegistry(size int, factory func(owner string) *Simulator) (*Registry, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Registry{cache: c, factory: factory}, nil
}

func (r *Registry) For(owner string) Extension {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.cache.Get(owner); ok {
		return v.(Extension)
	}
	sim := r.factory(owner)
	r.cache.Add(owner, sim)
	return sim
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

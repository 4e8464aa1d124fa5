// internal/registry/registry.go
package registry

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

// ProductID is the handle assigned to a product at creation.
type ProductID uint64

// Identity is the caller identity reported by the host for a call.
type Identity string

// Product is an immutable registry record.
type Product struct {
	ID    ProductID `json:"id"`
	Name  []byte    `json:"name"`
	Price uint64    `json:"price"`
	Owner Identity  `json:"owner"`
}

func (p Product) clone() Product {
	p.Name = bytes.Clone(p.Name)
	return p
}

var (
	ErrCounterOverflow = errors.New("product id space exhausted")
	ErrInvalidSnapshot = errors.New("invalid registry snapshot")
)

// Journal is notified of every create before it is committed in memory.
// Returning an error aborts the create.
type Journal interface {
	Append(p Product, nextID ProductID) error
}

// Snapshot is the serializable state of a Registry.
type Snapshot struct {
	Products []Product `json:"products"`
	NextID   ProductID `json:"next_id"`
}

type Option func(*Registry)

func WithJournal(j Journal) Option {
	return func(r *Registry) {
		r.journal = j
	}
}

// Registry holds products keyed by id and hands out ids in increasing order.
// A single mutex guards both the map and the counter, and is held for the
// whole of Create.
type Registry struct {
	mu       sync.RWMutex
	products map[ProductID]Product
	nextID   ProductID
	journal  Journal
}

// New creates an empty registry whose first id is 1.
func New(opts ...Option) *Registry {
	r := &Registry{
		products: make(map[ProductID]Product),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restore rebuilds a registry from a snapshot.
func Restore(s Snapshot, opts ...Option) (*Registry, error) {
	if s.NextID == 0 {
		return nil, fmt.Errorf("%w: next id must be at least 1", ErrInvalidSnapshot)
	}

	r := New(opts...)
	for _, p := range s.Products {
		if p.ID == 0 || p.ID >= s.NextID {
			return nil, fmt.Errorf("%w: product id %d outside [1, %d)", ErrInvalidSnapshot, p.ID, s.NextID)
		}
		if _, exists := r.products[p.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate product id %d", ErrInvalidSnapshot, p.ID)
		}
		r.products[p.ID] = p.clone()
	}
	r.nextID = s.NextID
	return r, nil
}

// Create stores a new product stamped with owner and returns its id.
func (r *Registry) Create(owner Identity, name []byte, price uint64) (ProductID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	if id == math.MaxUint64 {
		return 0, ErrCounterOverflow
	}
	next := id + 1

	product := Product{
		ID:    id,
		Name:  bytes.Clone(name),
		Price: price,
		Owner: owner,
	}

	if r.journal != nil {
		if err := r.journal.Append(product.clone(), next); err != nil {
			return 0, fmt.Errorf("journal product %d: %w", id, err)
		}
	}

	r.products[id] = product
	r.nextID = next
	return id, nil
}

// Get returns a copy of the product stored under id.
func (r *Registry) Get(id ProductID) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return Product{}, false
	}
	return p.clone(), true
}

// List returns copies of every product in ascending id order.
func (r *Registry) List() []Product {
	r.mu.RLock()
	list := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		list = append(list, p.clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return list
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}

// NextID reports the id the next successful Create will assign.
func (r *Registry) NextID() ProductID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

// Snapshot captures products and counter under one read lock.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	products := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p.clone())
	}
	next := r.nextID
	r.mu.RUnlock()

	slices.SortFunc(products, func(a, b Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return Snapshot{Products: products, NextID: next}
}

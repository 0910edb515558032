// Package memory implements every repository over process memory. It backs
// the demo driver: state is shared by all requests and lost on restart.
package memory

import (
	"context"
	"sync"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
)

// state is one consistent version of every table
type state struct {
	products     map[uuid.UUID]*domain.Product
	categories   map[uuid.UUID]*domain.Category
	customers    map[uuid.UUID]*domain.Customer
	phoneIndex   map[string]uuid.UUID
	orders       map[uuid.UUID]*domain.Order
	orderNumbers map[string]uuid.UUID
	users        map[uuid.UUID]*domain.User
	tokens       map[string]*domain.RefreshToken
}

func newState() *state {
	return &state{
		products:     make(map[uuid.UUID]*domain.Product),
		categories:   make(map[uuid.UUID]*domain.Category),
		customers:    make(map[uuid.UUID]*domain.Customer),
		phoneIndex:   make(map[string]uuid.UUID),
		orders:       make(map[uuid.UUID]*domain.Order),
		orderNumbers: make(map[string]uuid.UUID),
		users:        make(map[uuid.UUID]*domain.User),
		tokens:       make(map[string]*domain.RefreshToken),
	}
}

// clone copies the maps that a ledger transaction writes. Records are
// replaced, never mutated in place, so sharing the pointers is safe.
func (s *state) clone() *state {
	c := *s
	c.products = cloneMap(s.products)
	c.customers = cloneMap(s.customers)
	c.phoneIndex = cloneMap(s.phoneIndex)
	c.orders = cloneMap(s.orders)
	c.orderNumbers = cloneMap(s.orderNumbers)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store holds the shared state. Reads take the read lock, writes and whole
// transactions take the write lock.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState()}
}

// access binds a repository either to the live store or to a transaction's
// private copy of the state.
type access struct {
	store *Store
	tx    *state
}

func (a access) read(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	return fn(a.store.state)
}

func (a access) write(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

// WithinTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds. Transactions are serialized by the store lock.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	draft := s.state.clone()
	a := access{store: s, tx: draft}
	repos := repository.Repositories{
		Products:  &productRepository{access: a},
		Customers: &customerRepository{access: a},
		Orders:    &orderRepository{access: a},
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}
	// A deadline that passed while fn ran still aborts the transaction.
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = draft
	return nil
}

// Products returns a repository over the live product table
func (s *Store) Products() repository.ProductRepository {
	return &productRepository{access: access{store: s}}
}

// Categories returns a repository over the live category table
func (s *Store) Categories() repository.CategoryRepository {
	return &categoryRepository{access: access{store: s}}
}

// Customers returns a repository over the live customer table
func (s *Store) Customers() repository.CustomerRepository {
	return &customerRepository{access: access{store: s}}
}

// Orders returns a repository over the live order table
func (s *Store) Orders() repository.OrderRepository {
	return &orderRepository{access: access{store: s}}
}

// Users returns a repository over the live user table
func (s *Store) Users() repository.UserRepository {
	return &userRepository{access: access{store: s}}
}

// RefreshTokens returns a repository over the live refresh token table
func (s *Store) RefreshTokens() repository.RefreshTokenRepository {
	return &refreshTokenRepository{access: access{store: s}}
}

// paginate returns the requested page of items
func paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

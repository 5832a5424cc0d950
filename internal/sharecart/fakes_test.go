package sharecart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/sharecart-backend/internal/sharestats"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

type fakeCart struct {
	mu       sync.Mutex
	lines    map[string][]types.CartLine
	refuse   map[int64]bool
	fail     map[int64]error
	itemsErr error
	emptied  int
}

func newFakeCart() *fakeCart {
	return &fakeCart{
		lines:  map[string][]types.CartLine{},
		refuse: map[int64]bool{},
		fail:   map[int64]error{},
	}
}

func (c *fakeCart) Items(_ context.Context, sessionID string) ([]types.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.itemsErr != nil {
		return nil, c.itemsErr
	}
	return append([]types.CartLine(nil), c.lines[sessionID]...), nil
}

func (c *fakeCart) Add(_ context.Context, sessionID string, line types.CartLine) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[line.ProductID]; err != nil {
		return false, err
	}
	if c.refuse[line.ProductID] {
		return false, nil
	}
	c.lines[sessionID] = append(c.lines[sessionID], line)
	return true, nil
}

func (c *fakeCart) Empty(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emptied++
	delete(c.lines, sessionID)
	return nil
}

func (c *fakeCart) URL() string {
	return "https://shop.example.com/cart/"
}

type fakeSession struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSession() *fakeSession {
	return &fakeSession{values: map[string]string{}}
}

func (s *fakeSession) Get(_ context.Context, sessionID, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[sessionID+"/"+name]
	return v, ok, nil
}

func (s *fakeSession) Set(_ context.Context, sessionID, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[sessionID+"/"+name] = value
	return nil
}

func (s *fakeSession) Clear(_ context.Context, sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, sessionID+"/"+name)
	return nil
}

type fakeCatalog struct {
	products map[int64]*models.Product
}

func (c fakeCatalog) Product(_ context.Context, id int64) (*models.Product, error) {
	return c.products[id], nil
}

// flakyStats fails visit recording but delegates everything else.
type flakyStats struct {
	sharestats.Store
}

func (f flakyStats) RecordVisit(context.Context, int64, *string, time.Time) (*models.ShareVisit, error) {
	return nil, errors.New("stats table unavailable")
}

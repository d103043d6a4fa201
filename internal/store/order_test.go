package store

import (
	"errors"
	"testing"

	"github.com/raulikeda/EventBacktesting/internal/domain"
)

func newOrder(t *testing.T, id int64, owner string) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder("PETR4", domain.OrderSideBuy, 10, 2030, owner)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	o.ID = id
	return o
}

func TestOrderStore_CreateAndGet(t *testing.T) {
	s := NewOrderStore()
	o := newOrder(t, 1, "alpha")
	s.Create(o)

	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 || got.Owner != "alpha" {
		t.Errorf("unexpected order: %+v", got)
	}
	if s.Count() != 1 {
		t.Errorf("expected count 1, got %d", s.Count())
	}
}

func TestOrderStore_GetNotFound(t *testing.T) {
	s := NewOrderStore()
	if _, err := s.Get(42); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderStore_ListByOwner(t *testing.T) {
	s := NewOrderStore()
	s.Create(newOrder(t, 1, "alpha"))
	s.Create(newOrder(t, 2, "beta"))
	s.Create(newOrder(t, 3, "alpha"))

	alpha := s.ListByOwner("alpha")
	if len(alpha) != 2 || alpha[0].ID != 1 || alpha[1].ID != 3 {
		t.Errorf("unexpected alpha orders: %+v", alpha)
	}
	if got := s.ListByOwner("ghost"); len(got) != 0 {
		t.Errorf("expected empty slice for unknown owner, got %+v", got)
	}
}

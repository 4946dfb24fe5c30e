package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

func TestMockClient(t *testing.T) {
	mock := NewMockClient()
	if mock == nil {
		t.Fatal("expected non-nil mock")
	}

	result, err := mock.Check(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 || !result[0].InStock || !result[1].InStock {
		t.Fatalf("expected all in stock, got %+v", result)
	}

	mock.SetOutOfStock("b")
	mock.Unknown["c"] = true
	result, err = mock.Check(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 || result[1].SKUCode != "b" || result[1].InStock {
		t.Fatalf("unexpected result: %+v", result)
	}

	mock.Err = errors.New("inventory down")
	if _, err := mock.Check(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
	if mock.CallCount() != 3 {
		t.Fatalf("unexpected call counter: %d", mock.CallCount())
	}
}

func TestMockClient_DelayHonorsContext(t *testing.T) {
	mock := NewMockClient()
	mock.Delay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := mock.Check(ctx, []string{"a"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type stubStock struct {
	quantities map[string]int64
	err        error
	requested  []string
}

func (s *stubStock) Quantities(_ context.Context, skus []string) (map[string]int64, error) {
	s.requested = skus
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[string]int64)
	for _, sku := range skus {
		if q, ok := s.quantities[sku]; ok {
			result[sku] = q
		}
	}
	return result, nil
}

func (s *stubStock) SetQuantity(_ context.Context, sku string, quantity int64) error {
	if s.quantities == nil {
		s.quantities = make(map[string]int64)
	}
	s.quantities[sku] = quantity
	return nil
}

func TestServiceCheck(t *testing.T) {
	stock := &stubStock{quantities: map[string]int64{"iphone_13": 100, "iphone_13_red": 0}}
	svc := NewService(stock, nil)

	result, err := svc.Check(context.Background(), []string{"iphone_13", "iphone_13_red", "unknown", "iphone_13"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.AvailabilityResult{
		{SKUCode: "iphone_13", InStock: true},
		{SKUCode: "iphone_13_red", InStock: false},
		{SKUCode: "unknown", InStock: false},
	}
	if len(result) != len(want) {
		t.Fatalf("got %+v, want %+v", result, want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Fatalf("entry %d: got %+v, want %+v", i, result[i], want[i])
		}
	}
	if len(stock.requested) != 3 {
		t.Fatalf("expected distinct skus in repository query, got %v", stock.requested)
	}
}

func TestServiceCheck_RepositoryError(t *testing.T) {
	svc := NewService(&stubStock{err: errors.New("redis down")}, nil)
	if _, err := svc.Check(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestServiceRestock(t *testing.T) {
	stock := &stubStock{}
	svc := NewService(stock, nil)

	if err := svc.Restock(context.Background(), "a", -5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock.quantities["a"] != 0 {
		t.Fatalf("negative restock must clamp to zero, got %d", stock.quantities["a"])
	}
}

package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// helper для создания базового запроса с двумя позициями.
func makeRequest() domain.OrderRequest {
	return domain.OrderRequest{
		LineItems: []domain.LineItemRequest{
			{SKUCode: "iphone_13", Quantity: 1, Price: decimal.RequireFromString("1200.00")},
			{SKUCode: "iphone_13_red", Quantity: 2, Price: decimal.RequireFromString("1300.50")},
		},
	}
}

func TestOrderRequestValidate_Ok(t *testing.T) {
	if errs := makeRequest().Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderRequestValidate_ZeroQuantityAllowed(t *testing.T) {
	req := makeRequest()
	req.LineItems[0].Quantity = 0
	if errs := req.Validate(); len(errs) != 0 {
		t.Fatalf("zero quantity must pass validation, got %v", errs)
	}
}

func TestOrderRequestValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(r *domain.OrderRequest)
		want error
	}{
		{
			name: "no items",
			mut:  func(r *domain.OrderRequest) { r.LineItems = nil },
			want: domain.ErrItemsRequired,
		},
		{
			name: "blank sku",
			mut:  func(r *domain.OrderRequest) { r.LineItems[0].SKUCode = "  " },
			want: domain.ErrItemSKURequired,
		},
		{
			name: "negative qty",
			mut:  func(r *domain.OrderRequest) { r.LineItems[1].Quantity = -1 },
			want: domain.ErrItemQtyInvalid,
		},
		{
			name: "negative price",
			mut:  func(r *domain.OrderRequest) { r.LineItems[0].Price = decimal.NewFromInt(-5) },
			want: domain.ErrItemPriceInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := makeRequest()
			tc.mut(&req)

			errs := req.Validate()
			if !errors.Is(errors.Join(errs...), tc.want) {
				t.Fatalf("expected %v among %v", tc.want, errs)
			}
		})
	}
}

func TestNewOrder_CopiesItemsVerbatim(t *testing.T) {
	req := makeRequest()
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	order := domain.NewOrder("order-1", req, createdAt)

	if order.OrderNumber != "order-1" || !order.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected header: %+v", order)
	}
	if len(order.LineItems) != len(req.LineItems) {
		t.Fatalf("expected %d items, got %d", len(req.LineItems), len(order.LineItems))
	}
	for i, item := range order.LineItems {
		src := req.LineItems[i]
		if item.SKUCode != src.SKUCode || item.Quantity != src.Quantity || !item.Price.Equal(src.Price) {
			t.Fatalf("item %d not copied verbatim: %+v vs %+v", i, item, src)
		}
	}
	if want := decimal.RequireFromString("3801.00"); !order.Total().Equal(want) {
		t.Fatalf("total = %s, want %s", order.Total(), want)
	}
}

func TestOrderDistinctSKUs(t *testing.T) {
	order := domain.Order{LineItems: []domain.OrderLineItem{
		{SKUCode: "b"}, {SKUCode: "a"}, {SKUCode: "b"}, {SKUCode: "c"}, {SKUCode: "a"},
	}}

	got := order.DistinctSKUs()
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

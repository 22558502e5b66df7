package sealedapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchConvertsMinorUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products" {
			t.Errorf("path = %q, want /api/products", r.URL.Path)
		}
		if r.URL.Query().Get("t") != "test-token" {
			t.Errorf("token = %q, want test-token", r.URL.Query().Get("t"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","products":[
			{"id":"12345","product-name":"Evolving Skies Booster Box","console-name":"Pokemon","loose-price":0,"new-price":34999}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", 0, 5*time.Second)
	products, err := c.Search(context.Background(), "evolving skies booster box")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if got := products[0].NewPrice.String(); got != "349.99" {
		t.Errorf("NewPrice = %s, want 349.99 (34999 minor units)", got)
	}
}

func TestGetPricingFillsSealedBand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","id":"12345","product-name":"Booster Box","console-name":"Pokemon","loose-price":20000,"new-price":35000}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", 0, 5*time.Second)
	snap, err := c.GetPricing(context.Background(), "12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if got := snap.Sealed.Market.String(); got != "350" {
		t.Errorf("Sealed.Market = %s, want 350", got)
	}
	if !snap.Raw.IsZero() {
		t.Error("raw band must stay zero for sealed pricing")
	}
}

func TestGetProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", 0, 5*time.Second)
	p, err := c.GetProduct(context.Background(), "nope")
	if err != nil {
		t.Fatalf("not-found must not be an error, got %v", err)
	}
	if p != nil {
		t.Error("expected nil product for 404")
	}
}

package cache

import "testing"

func TestKeyDeterministicAcrossInsertionOrder(t *testing.T) {
	a := Key("search", map[string]string{"b": "2", "a": "1"}, TypeSearch)
	b := Key("search", map[string]string{"a": "1", "b": "2"}, TypeSearch)
	if a != b {
		t.Errorf("keys differ for equivalent params: %q vs %q", a, b)
	}
}

func TestKeyEmbedsTypeAndEndpoint(t *testing.T) {
	k := Key("cards", map[string]string{"q": "charizard"}, TypePricing)
	if got, want := k[:len("pricing:cards:")], "pricing:cards:"; got != want {
		t.Errorf("key prefix = %q, want %q", got, want)
	}
}

func TestKeyDistinguishesTypeEndpointParams(t *testing.T) {
	base := Key("cards", map[string]string{"q": "pikachu"}, TypeSearch)

	if Key("cards", map[string]string{"q": "pikachu"}, TypePricing) == base {
		t.Error("different type must yield a different key")
	}
	if Key("sealed", map[string]string{"q": "pikachu"}, TypeSearch) == base {
		t.Error("different endpoint must yield a different key")
	}
	if Key("cards", map[string]string{"q": "raichu"}, TypeSearch) == base {
		t.Error("different params must yield a different key")
	}
}

func TestHash32Stable(t *testing.T) {
	if hash32("a=1&b=2") != hash32("a=1&b=2") {
		t.Error("hash must be stable within a process")
	}
	if hash32("") != 0 {
		t.Errorf("hash of empty string = %d, want 0", hash32(""))
	}
}

package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
)

func TestSplitMount(t *testing.T) {
	cases := map[string][2]string{
		"secret/zitefy/db": {"secret", "zitefy/db"},
		"secret":           {"secret", ""},
		"":                 {"", ""},
	}
	for in, want := range cases {
		m, r := splitMount(in)
		if m != want[0] || r != want[1] {
			t.Fatalf("splitMount(%q) = %q, %q", in, m, r)
		}
	}
}

func TestGetKVCaches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/zitefy/db" {
			http.NotFound(w, r)
			return
		}
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"password":"pw"},"metadata":{}}}`))
	}))
	defer srv.Close()

	cfg := vault.DefaultConfig()
	cfg.Address = srv.URL
	api, err := vault.NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c := &Client{api: api, cache: make(map[string]cached)}

	for i := 0; i < 2; i++ {
		got, err := c.GetKV(context.Background(), "secret/zitefy/db", "password", time.Minute)
		if err != nil {
			t.Fatalf("GetKV: %v", err)
		}
		if got != "pw" {
			t.Fatalf("GetKV = %q", got)
		}
	}
	if hits != 1 {
		t.Fatalf("server hit %d times, want 1", hits)
	}

	if _, err := c.GetKV(context.Background(), "secret/zitefy/db", "missing", 0); err == nil {
		t.Fatal("expected missing-key error")
	}
	if _, err := c.GetKV(context.Background(), "", "k", 0); err == nil {
		t.Fatal("expected empty-path error")
	}
}

package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUsers(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"u1","email":"alice@corp.example","first_name":"Alice","department":"IT","role":"Engineer"},
			{"id":"u2","email":"bob@corp.example","department":"Finance"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	users, err := c.Users(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users", len(users))
	}
	if users[0].ID != "u1" || users[0].Department != "IT" {
		t.Fatalf("user: %+v", users[0])
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("auth header: %q", gotAuth)
	}
}

func TestUsersNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Users(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmptySource(t *testing.T) {
	users, err := Empty{}.Users(context.Background())
	if err != nil || users != nil {
		t.Fatalf("got %v, %v", users, err)
	}
}

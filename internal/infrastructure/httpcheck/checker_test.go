package httpcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckHealthy(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := &Checker{}
	if err := checker.Check(context.Background(), srv.URL); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if path != "/healthz" {
		t.Errorf("probed %q, want /healthz", path)
	}
}

func TestCheckCustomPath(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	}))
	defer srv.Close()

	checker := &Checker{Path: "/-/ready"}
	if err := checker.Check(context.Background(), srv.URL); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if path != "/-/ready" {
		t.Errorf("probed %q, want /-/ready", path)
	}
}

func TestCheckUnhealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "warming up", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := &Checker{}
	if err := checker.Check(context.Background(), srv.URL); err == nil {
		t.Fatal("Check() error = nil, want status failure")
	}
}

func TestCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	checker := &Checker{Timeout: time.Second}
	if err := checker.Check(context.Background(), srv.URL); err == nil {
		t.Fatal("Check() error = nil, want connection failure")
	}
}

func TestCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	checker := &Checker{Timeout: 20 * time.Millisecond}
	if err := checker.Check(context.Background(), srv.URL); err == nil {
		t.Fatal("Check() error = nil, want timeout")
	}
}

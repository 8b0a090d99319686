package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postline/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckSession(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure without cookie jar")
	}

	testsupport.WriteCookies(t, cfg.Session.CookiesPath)
	result := CheckSession(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass with cookie jar, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 cookies") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckPublisher(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Publisher.Command = "postline-test-missing-publisher"
	if result := CheckPublisher(cfg); result.Passed {
		t.Fatal("expected failure for missing publisher command")
	}

	stubbed := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if result := CheckPublisher(stubbed); !result.Passed {
		t.Fatalf("expected pass for stubbed publisher, got: %s", result.Detail)
	}
}

func TestCheckNtfy_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"healthy":true}`))
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.URL+"/postline-alerts")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckNtfy_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.URL+"/topic")
	if result.Passed {
		t.Fatal("expected failure for forbidden server")
	}
}

func TestNtfyServer(t *testing.T) {
	tests := []struct {
		topic string
		want  string
		err   bool
	}{
		{topic: "alerts", want: ntfyDefaultServer},
		{topic: "https://ntfy.example.com/alerts", want: "https://ntfy.example.com"},
		{topic: "http://localhost:8080/a/b", want: "http://localhost:8080"},
		{topic: " ", err: true},
		{topic: "https:///nohost", err: true},
	}
	for _, tt := range tests {
		got, err := ntfyServer(tt.topic)
		if tt.err {
			if err == nil {
				t.Fatalf("ntfyServer(%q): expected error", tt.topic)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ntfyServer(%q) = %q, %v; want %q", tt.topic, got, err, tt.want)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReadyConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSession(), testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results without ntfy, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
}

func TestRunAll_IncludesNtfyWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = srv.URL + "/alerts"

	results := RunAll(context.Background(), cfg)
	found := false
	for _, r := range results {
		if r.Name == "ntfy" {
			found = true
			if !r.Passed {
				t.Errorf("ntfy check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected ntfy check in results")
	}
}

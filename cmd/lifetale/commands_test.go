package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) install(t *testing.T) {
	t.Helper()
	orig := newAPIClient
	newAPIClient = func() (*apiClient, error) {
		return &apiClient{
			baseURL:    ts.server.URL,
			token:      "test-token",
			httpClient: ts.server.Client(),
		}, nil
	}
	t.Cleanup(func() { newAPIClient = orig })
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}

func TestProfileSetCommand_Attribute(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /profile": `{"name":"Alex Carter","gender":"male","intelligence":7,"wealth":9,"appearance":6,"health":8,"description":"A curious kid."}`,
	})
	ts.install(t)

	if err := runCommand(t, "profile", "set", "wealth", "9"); err != nil {
		t.Fatalf("profile set: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(ts.requests))
	}
	req := ts.requests[0]
	if req.Method != "PATCH" || req.Path != "/profile" {
		t.Errorf("request = %s %s, want PATCH /profile", req.Method, req.Path)
	}
	// Attribute values go over the wire as numbers, not strings.
	if !strings.Contains(req.Body, `"wealth":9`) {
		t.Errorf("body = %s, want numeric wealth", req.Body)
	}
	if req.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want bearer token", req.Auth)
	}
}

func TestProfileSetCommand_Name(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"PATCH /profile": `{"name":"Blake Reed"}`,
	})
	ts.install(t)

	if err := runCommand(t, "profile", "set", "name", "Blake Reed"); err != nil {
		t.Fatalf("profile set: %v", err)
	}

	if !strings.Contains(ts.requests[0].Body, `"name":"Blake Reed"`) {
		t.Errorf("body = %s, want string name", ts.requests[0].Body)
	}
}

func TestProfileSetCommand_BadAttributeValue(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.install(t)

	if err := runCommand(t, "profile", "set", "health", "plenty"); err == nil {
		t.Fatal("profile set: want error for non-integer attribute")
	}
	if len(ts.requests) != 0 {
		t.Errorf("server saw %d requests, want 0", len(ts.requests))
	}
}

func TestStoryDeleteCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /stories/abc": `{"deleted":"abc"}`,
	})
	ts.install(t)

	if err := runCommand(t, "story", "delete", "abc"); err != nil {
		t.Fatalf("story delete: %v", err)
	}

	req := ts.requests[0]
	if req.Method != "DELETE" || req.Path != "/stories/abc" {
		t.Errorf("request = %s %s, want DELETE /stories/abc", req.Method, req.Path)
	}
}

func TestGenerateCommand_DrivesBatches(t *testing.T) {
	first := `{"story":{"id":"s1","stages":[{"age":0,"title":"Born","content":"x"}],"complete":false},"progress":17,"done":false}`
	last := `{"story":{"id":"s1","stages":[{"age":0,"title":"Born","content":"x"},{"age":80,"title":"Rest","content":"y"}],"complete":true},"progress":100,"done":true}`
	ts := newTestServer(t, map[string]string{
		"POST /stories":            first,
		"POST /stories/s1/batches": last,
	})
	ts.install(t)

	dir := t.TempDir()
	profilePath := dir + "/p.json"
	writeTestProfile(t, profilePath)

	if err := runCommand(t, "generate", "--profile", profilePath); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(ts.requests) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(ts.requests))
	}
	if ts.requests[0].Path != "/stories" {
		t.Errorf("first request = %s, want /stories", ts.requests[0].Path)
	}
	if ts.requests[1].Path != "/stories/s1/batches" {
		t.Errorf("second request = %s, want /stories/s1/batches", ts.requests[1].Path)
	}
	if !strings.Contains(ts.requests[0].Body, `"name":"Alex Carter"`) {
		t.Errorf("create body = %s, want the profile", ts.requests[0].Body)
	}
}

func TestGenerateCommand_InvalidProfileFile(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.install(t)

	dir := t.TempDir()
	path := dir + "/p.json"
	if err := writeFile(path, `{"name":"X"}`); err != nil {
		t.Fatal(err)
	}

	if err := runCommand(t, "generate", "--profile", path); err == nil {
		t.Fatal("generate: want error for invalid profile")
	}
	if len(ts.requests) != 0 {
		t.Errorf("server saw %d requests, want 0", len(ts.requests))
	}
}

func TestServerErrorEnvelopeSurfaced(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.install(t)

	err := runCommand(t, "story", "show", "missing")
	if err == nil {
		t.Fatal("story show: want error for unknown story")
	}
	// The server's structured message beats a raw body dump.
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want status and server message", err)
	}
}

func TestCountLabel(t *testing.T) {
	if got := countLabel(5, 100); got != "5" {
		t.Errorf("countLabel(5, 100) = %q, want 5", got)
	}
	if got := countLabel(100, 100); got != "100+" {
		t.Errorf("countLabel(100, 100) = %q, want 100+", got)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func writeTestProfile(t *testing.T, path string) {
	t.Helper()
	p := `{"name":"Alex Carter","gender":"female","intelligence":7,"wealth":4,"appearance":6,"health":8,"description":"A curious kid from a small coastal town."}`
	if err := writeFile(path, p); err != nil {
		t.Fatal(err)
	}
}

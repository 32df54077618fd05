package repl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codesandbox/internal/cli/command"
	httpclient "codesandbox/internal/cli/http"
)

type scriptedInput struct {
	lines   []string
	prompts []string
}

func (s *scriptedInput) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) SetPrompt(prompt string) {
	s.prompts = append(s.prompts, prompt)
}

func newSandboxServer(t *testing.T, gotBody *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/sandbox/execute":
			if err := json.NewDecoder(r.Body).Decode(gotBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
			_, _ = w.Write([]byte(`{"success":true,"output":"hello\n","error":null,"executionTime":7}`))
		case "/api/v1/sandbox/languages":
			_, _ = w.Write([]byte(`{"code":0,"message":"success","data":[{"id":"python"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestServeRunsFileAndPromptsForMissingFields(t *testing.T) {
	var body map[string]string
	srv := newSandboxServer(t, &body)
	defer srv.Close()

	src := filepath.Join(t.TempDir(), "main.py")
	if err := os.WriteFile(src, []byte("print('hello')"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	var out bytes.Buffer
	session := New(httpclient.New(srv.URL, time.Second), command.Registry(), true, &out)
	in := &scriptedInput{lines: []string{"run", src, "languages list", "exit", "never read"}}
	if err := session.Serve(context.Background(), in); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if body["language"] != "python" || body["code"] != "print('hello')" {
		t.Fatalf("unexpected request body %v", body)
	}
	text := out.String()
	if !strings.Contains(text, "ok (7ms)") || !strings.Contains(text, "hello") {
		t.Fatalf("execution not rendered: %s", text)
	}
	if !strings.Contains(text, `"id": "python"`) {
		t.Fatalf("languages not rendered: %s", text)
	}
	if !strings.HasSuffix(strings.TrimSpace(text), "bye") {
		t.Fatalf("expected exit message: %s", text)
	}
	if len(in.lines) != 1 {
		t.Fatalf("session should stop at exit")
	}
	found := false
	for _, p := range in.prompts {
		if p == "source file: " {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected prompt for file, got %v", in.prompts)
	}
}

func TestServeSystemCommands(t *testing.T) {
	var out bytes.Buffer
	client := httpclient.New("http://127.0.0.1:1", time.Second)
	session := New(client, command.Registry(), false, &out)
	in := &scriptedInput{lines: []string{"help", "set base http://sandbox:9000/", "set timeout nope", "host reboot"}}
	if err := session.Serve(context.Background(), in); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if client.BaseURL() != "http://sandbox:9000" {
		t.Fatalf("base not updated: %s", client.BaseURL())
	}
	text := out.String()
	for _, want := range []string{"languages list", "invalid duration", "unknown command: host reboot"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output: %s", want, text)
		}
	}
}

func TestRenderFailedExecution(t *testing.T) {
	var out bytes.Buffer
	session := New(nil, nil, false, &out)
	session.renderExecution(httpclient.ResponseInfo{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"success":false,"output":null,"error":"boom","executionTime":0}`),
	})
	if !strings.Contains(out.String(), "failed (0ms)") || !strings.Contains(out.String(), "boom") {
		t.Fatalf("unexpected output %s", out.String())
	}
}

package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			t.Errorf("missing request id")
		}
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(append([]byte(r.Method+" "+r.URL.Path+" "), body...))
	}))
	defer srv.Close()

	client := New(srv.URL+"/", time.Second)
	resp, err := client.Do(context.Background(), http.MethodPost, "/api/v1/sandbox/execute", nil, []byte(`{}`))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted || string(resp.Body) != "POST /api/v1/sandbox/execute {}" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	client.SetTimeout(20 * time.Millisecond)
	client.SetTimeout(0)
	if _, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil); err == nil {
		t.Fatalf("expected timeout error")
	}
}

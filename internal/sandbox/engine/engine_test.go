package engine

import (
	"strings"
	"testing"
)

func TestLimitedBufferTruncates(t *testing.T) {
	buf := &limitedBuffer{limit: 5}
	n, err := buf.Write([]byte("abc"))
	if err != nil || n != 3 {
		t.Fatalf("write failed: n=%d err=%v", n, err)
	}
	n, err = buf.Write([]byte("defgh"))
	if err != nil || n != 5 {
		t.Fatalf("write should report full length: n=%d err=%v", n, err)
	}
	if buf.String() != "abcde" {
		t.Fatalf("unexpected content %q", buf.String())
	}
	if !buf.truncated {
		t.Fatalf("expected truncated flag")
	}
	if _, err := buf.Write([]byte("x")); err != nil {
		t.Fatalf("write after limit failed: %v", err)
	}
	if buf.String() != "abcde" {
		t.Fatalf("content grew past limit: %q", buf.String())
	}
}

func TestWrapArgs(t *testing.T) {
	cfg := Config{}
	args := []string{"python3", "solution.py"}
	if got := cfg.wrapArgs(args); strings.Join(got, " ") != "python3 solution.py" {
		t.Fatalf("unexpected args without helper: %v", got)
	}

	cfg = Config{HelperPath: "/usr/local/bin/sandbox-init", HelperArgs: []string{"-nproc", "64"}}
	got := cfg.wrapArgs(args)
	want := "/usr/local/bin/sandbox-init -nproc 64 -- python3 solution.py"
	if strings.Join(got, " ") != want {
		t.Fatalf("unexpected args with helper: %v", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.MaxOutputBytes != defaultMaxOutputBytes {
		t.Fatalf("unexpected default output limit %d", cfg.MaxOutputBytes)
	}
}

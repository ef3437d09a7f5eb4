package commands

import (
	"bytes"
	"strings"
	"testing"

	"linkmgr/internal/crypto"
	"linkmgr/internal/domain"
)

const testChain = "aca376f206b8fc25a6ed44dbdc66547c36c6c33e3a119ffbeaef943642f0e906"

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--home", dir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCLI_SessionLifecycle(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	out, err := run(t, dir, "init")
	if err != nil || !strings.Contains(out, "Storage created") || !strings.Contains(out, "wss://cb.anchor.link/") {
		t.Fatalf("init: %v\n%s", err, out)
	}
	out, err = run(t, dir, "init")
	if err != nil || !strings.Contains(out, "Storage loaded") {
		t.Fatalf("second init: %v\n%s", err, out)
	}

	key := crypto.PublicKeyOf(domain.PrivateKey{5})
	identity := []string{"--network", testChain, "--actor", "alice", "--name", "app"}
	if out, err = run(t, dir, append([]string{"sessions", "add", "--public-key", key.String()}, identity...)...); err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}

	out, err = run(t, dir, "sessions", "list")
	if err != nil || !strings.Contains(out, "alice@active") || !strings.Contains(out, key.String()) {
		t.Fatalf("list: %v\n%s", err, out)
	}

	if out, err = run(t, dir, append([]string{"sessions", "remove"}, identity...)...); err != nil {
		t.Fatalf("remove: %v\n%s", err, out)
	}
	if _, err = run(t, dir, append([]string{"sessions", "remove"}, identity...)...); err == nil {
		t.Fatal("removing a missing session must fail")
	}
	out, _ = run(t, dir, "sessions", "list")
	if !strings.Contains(out, "No sessions.") {
		t.Fatalf("list after remove:\n%s", out)
	}
}

func TestCLI_RejectsBadInput(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()
	if _, err := run(t, dir, "sessions", "add", "--network", "zz", "--actor", "alice", "--name", "app", "--public-key", "PUB_K1_x"); err == nil {
		t.Fatal("expected bad chain id error")
	}
	if _, err := run(t, dir, "--config", dir+"/missing.toml", "init"); err == nil {
		t.Fatal("explicit missing config must fail")
	}
}

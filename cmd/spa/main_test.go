package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

func newSession(t *testing.T) *session {
	t.Helper()
	v, err := vocab.New(64, vocab.WithSeed(1), vocab.WithStrict(false))
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	s := &session{v: v, dbPath: filepath.Join(t.TempDir(), "spa.db")}
	t.Cleanup(s.close)
	return s
}

func TestSessionRun(t *testing.T) {
	s := newSession(t)
	in := strings.NewReader(strings.Join([]string{
		"populate A; B; C = A * B",
		"keys",
		"parse C * ~B",
		"sim A; A",
		"pairs",
		"bogus",
		"quit",
		"keys",
	}, "\n"))
	var out bytes.Buffer
	if err := s.run(in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"3 keys", "A B C", "1.0000", "A*B", `unknown command "bogus"`} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Count(got, "A B C") != 1 {
		t.Error("commands after quit must not run")
	}
}

func TestSessionSaveLoad(t *testing.T) {
	s := newSession(t)
	var out bytes.Buffer
	for _, line := range []string{"populate A; B", "save concepts"} {
		if err := s.exec(line, &out); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	before := s.v
	if err := s.exec("load concepts", &out); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.v == before || strings.Join(s.v.Keys(), ",") != "A,B" {
		t.Fatalf("expected a fresh vocabulary with A,B, got %v", s.v.Keys())
	}
	if err := s.exec("load missing", &out); err == nil {
		t.Fatal("expected error for missing vocabulary")
	}
}

func TestSessionErrors(t *testing.T) {
	s := newSession(t)
	var out bytes.Buffer
	for _, line := range []string{"populate A; A", "parse A +", "sim A"} {
		if err := s.exec(line, &out); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}
}

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestBehaviorsCLI(t *testing.T) {
	db := filepath.Join(t.TempDir(), "library.db")

	out, err := runCmd(t, "generate", "-db", db, "-n", "4", "-seed", "9")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ids := regexp.MustCompile(`id=(\S+)`).FindAllStringSubmatch(out, -1)
	if len(ids) != 4 {
		t.Fatalf("generate printed %d ids:\n%s", len(ids), out)
	}

	out, err = runCmd(t, "next", "-db", db)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !strings.Contains(out, ids[0][1]) {
		t.Errorf("next = %q; want the oldest entry %s", out, ids[0][1])
	}

	if _, err := runCmd(t, "rate", "-db", db, "-id", ids[0][1], "-rating", "5"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if _, err := runCmd(t, "rate", "-db", db, "-id", ids[1][1], "-rating", "2"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	out, _ = runCmd(t, "next", "-db", db)
	if !strings.Contains(out, ids[2][1]) {
		t.Errorf("next after rating = %q; want %s", out, ids[2][1])
	}

	out, err = runCmd(t, "show", "-db", db, "-id", ids[0][1])
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "if (") || !strings.Contains(out, "rating 5") {
		t.Errorf("show output:\n%s", out)
	}

	out, err = runCmd(t, "list", "-db", db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Count(out, "id=") != 4 {
		t.Errorf("list output:\n%s", out)
	}

	out, err = runCmd(t, "select", "-db", db, "-seed", "3")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if strings.Count(out, "id=") != 1 {
		t.Errorf("select from two rated entries should keep one:\n%s", out)
	}
}

func TestBehaviorsCLI_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "library.db")
	cases := [][]string{
		{},
		{"explode"},
		{"rate", "-db", db, "-rating", "3"},
		{"rate", "-db", db, "-id", "missing", "-rating", "3"},
		{"rate", "-db", db, "-id", "x", "-rating", "0"},
		{"show", "-db", db},
		{"show", "-db", db, "-id", "missing"},
		{"generate", "-db", db, "-n", "0"},
		{"list", "-store", "postgres"},
	}
	for _, args := range cases {
		if _, err := runCmd(t, args...); err == nil {
			t.Errorf("run(%v) succeeded; want error", args)
		}
	}
}

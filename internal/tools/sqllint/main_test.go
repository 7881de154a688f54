package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRepositorySQLIsMarked(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"../../sqlinline"}, &stderr); code != 0 {
		t.Fatalf("sqllint failed on sqlinline:\n%s", stderr.String())
	}
}

func TestReportsMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QBad = `select 1`\n")

	var stderr bytes.Buffer
	if code := run([]string{dir}, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "QBad") || !strings.Contains(stderr.String(), "missing or invalid") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestReportsDuplicateMarker(t *testing.T) {
	dir := t.TempDir()
	marker := "--sql 11111111-2222-4333-8444-555555555555"
	writeGo(t, dir, "a.go", "package q\n\nconst QOne = `"+marker+"\nselect 1;\n`\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QTwo = `"+marker+"\nselect 2;\n`\n")

	var stderr bytes.Buffer
	if code := run([]string{dir}, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "marker already used by QOne") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestIgnoresNonSQLStrings(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "s.go", "package q\n\nconst Greeting = \"hello, selected world\"\n")

	var stderr bytes.Buffer
	if code := run([]string{dir}, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
}

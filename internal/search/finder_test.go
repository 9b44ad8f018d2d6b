package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// searchTree builds:
//
//	root/report.txt        ("quarterly numbers")
//	root/.secret.txt       ("quarterly numbers")
//	root/sub/report.go
//	root/sub/deep/notes.txt
func searchTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"report.txt":         "quarterly numbers",
		".secret.txt":        "quarterly numbers",
		"sub/report.go":      "package report",
		"sub/deep/notes.txt": "misc",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestFindByName(t *testing.T) {
	root := searchTree(t)
	f := &Finder{}

	items, err := f.Find(context.Background(), root, Parse("report"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(items), items)
	}
	if items[0].Name != "report.txt" || items[1].Name != "report.go" {
		t.Errorf("unexpected matches: %q, %q", items[0].Name, items[1].Name)
	}
}

func TestFindDepthBound(t *testing.T) {
	root := searchTree(t)
	f := &Finder{MaxDepth: 1}

	items, err := f.Find(context.Background(), root, Parse("ext:txt"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(items) != 1 || items[0].Name != "report.txt" {
		t.Fatalf("depth 1 should only see the root level, got %+v", items)
	}
}

func TestFindHiddenExcludedByDefault(t *testing.T) {
	root := searchTree(t)

	f := &Finder{}
	items, err := f.Find(context.Background(), root, Parse("secret"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("hidden file leaked: %+v", items)
	}

	f.IncludeHidden = true
	items, err = f.Find(context.Background(), root, Parse("secret"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("hidden file not found with IncludeHidden: %+v", items)
	}
}

func TestFindByContents(t *testing.T) {
	root := searchTree(t)
	f := &Finder{}

	items, err := f.Find(context.Background(), root, Parse("contents:quarterly"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(items) != 1 || items[0].Name != "report.txt" {
		t.Fatalf("got %+v", items)
	}
}

func TestFindCancelled(t *testing.T) {
	root := searchTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &Finder{}
	_, err := f.Find(ctx, root, Parse("report"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

package search

import (
	"testing"
	"time"

	"github.com/prowlfs/prowl/internal/fs"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		input string
		want  []DirectiveType
	}{
		{"foo", []DirectiveType{DirFilename}},
		{"name:report", []DirectiveType{DirFilename}},
		{"contents:hello", []DirectiveType{DirContents}},
		{"ext:go", []DirectiveType{DirExt}},
		{"size:>1MB", []DirectiveType{DirSize}},
		{"modified:>2024-01-01", []DirectiveType{DirModified}},
		{"ext:go size:<10KB", []DirectiveType{DirExt, DirSize}},
	}

	for _, tt := range tests {
		q := Parse(tt.input)
		if len(q.Directives) != len(tt.want) {
			t.Errorf("Parse(%q): %d directives, want %d", tt.input, len(q.Directives), len(tt.want))
			continue
		}
		for i, typ := range tt.want {
			if q.Directives[i].Type != typ {
				t.Errorf("Parse(%q)[%d].Type = %v, want %v", tt.input, i, q.Directives[i].Type, typ)
			}
		}
	}
}

func TestParseQuoted(t *testing.T) {
	q := Parse(`contents:"hello world" ext:txt`)
	if len(q.Directives) != 2 {
		t.Fatalf("got %d directives", len(q.Directives))
	}
	if q.Directives[0].Value != "hello world" {
		t.Errorf("quoted value = %q", q.Directives[0].Value)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"512B", 512},
		{"1KB", 1024},
		{"1.5KB", 1536},
		{"10MB", 10 * 1024 * 1024},
		{"2GB", 2 * 1024 * 1024 * 1024},
		{"junk", 0},
	}
	for _, tt := range tests {
		if got := parseSize(tt.input); got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseSizeOperators(t *testing.T) {
	q := Parse("size:>=1KB")
	d := q.Directives[0]
	if d.Operator != OpGreaterEq || d.NumValue != 1024 {
		t.Errorf("got op=%v num=%d", d.Operator, d.NumValue)
	}
}

func item(name string, size int64, dir bool) fs.Item {
	return fs.Item{Name: name, Path: "/t/" + name, Size: size, IsDir: dir, ModTime: time.Now()}
}

func TestMatchFilename(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"rep", "report.txt", true},
		{"REP", "report.txt", true},
		{"zed", "report.txt", false},
		{"*.txt", "report.txt", true},
		{"rep*txt", "report.txt", true},
		{"rep*pdf", "report.txt", false},
	}
	for _, tt := range tests {
		m := NewMatcher(Parse(tt.pattern))
		if got := m.Match(item(tt.name, 1, false)); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestMatchSize(t *testing.T) {
	m := NewMatcher(Parse("size:>1KB"))
	if m.Match(item("small", 100, false)) {
		t.Error("100B should not match >1KB")
	}
	if !m.Match(item("big", 4096, false)) {
		t.Error("4KB should match >1KB")
	}
}

func TestMatchContents(t *testing.T) {
	m := NewMatcher(Parse("contents:needle"))
	m.SetContentFunc(func(path string) (string, error) {
		return "a haystack with a Needle inside", nil
	})
	if !m.Match(item("hay.txt", 10, false)) {
		t.Error("content match should be case-insensitive")
	}
	if m.Match(item("dir", 0, true)) {
		t.Error("directories never match content directives")
	}
}

func TestMatchAndLogic(t *testing.T) {
	m := NewMatcher(Parse("ext:txt size:<1KB"))
	if !m.Match(item("a.txt", 10, false)) {
		t.Error("both directives hold")
	}
	if m.Match(item("a.txt", 4096, false)) {
		t.Error("size directive fails")
	}
	if m.Match(item("a.go", 10, false)) {
		t.Error("ext directive fails")
	}
}

func TestEmptyQueryMatchesAll(t *testing.T) {
	q := Parse("")
	if !q.IsEmpty() {
		t.Fatal("expected empty query")
	}
	if !NewMatcher(q).Match(item("anything", 1, false)) {
		t.Error("empty query should match everything")
	}
}

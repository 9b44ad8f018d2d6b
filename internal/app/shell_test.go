package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteConfirmation(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)
	a.cfg.Behavior.ConfirmDelete = true

	var out bytes.Buffer
	s := NewShell(a, strings.NewReader("n\ny\n"), &out)
	target := filepath.Join(root, "notes.txt")

	a.Select(2) // notes.txt
	s.dispatch("rm", nil)
	assert.Contains(t, out.String(), "[y/N]")
	_, err := os.Stat(target)
	require.NoError(t, err, "declined delete must leave the file alone")

	a.Select(2)
	s.dispatch("rm", nil)
	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err), "confirmed delete removes the file")
}

func TestDeleteWithoutConfirmFlagSkipsPrompt(t *testing.T) {
	root := makeTree(t)
	a := newTestApp(t, root)

	var out bytes.Buffer
	s := NewShell(a, strings.NewReader(""), &out)

	a.Select(2)
	s.dispatch("rm", nil)

	assert.NotContains(t, out.String(), "[y/N]")
	_, err := os.Stat(filepath.Join(root, "notes.txt"))
	assert.True(t, os.IsNotExist(err))
}

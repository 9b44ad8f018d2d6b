package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/clipboard"
	"github.com/prowlfs/prowl/internal/fs"
	"github.com/prowlfs/prowl/internal/trash"
)

// Shell is the interactive command loop. It reads one command per line
// and renders the current view after every navigation.
type Shell struct {
	app     *App
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

func NewShell(a *App, in io.Reader, out io.Writer) *Shell {
	return &Shell{app: a, in: in, out: out, scanner: bufio.NewScanner(in)}
}

// Run processes commands until quit or EOF.
func (s *Shell) Run() error {
	s.printListing()

	for {
		s.drainEvents()
		fmt.Fprintf(s.out, "%s> ", s.app.Current().CurrentPath)
		if !s.scanner.Scan() {
			return s.scanner.Err()
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			return nil
		}
		s.dispatch(cmd, args)
	}
}

func (s *Shell) dispatch(cmd string, args []string) {
	var err error
	switch cmd {
	case "ls":
		s.printListing()
	case "cd":
		if len(args) == 0 {
			err = s.app.EnterSelected()
		} else {
			err = s.app.Jump(args[0])
		}
		// A watch-degraded navigation still moved the view.
		if err == nil || watchDegraded(err) {
			s.printListing()
		}
	case "up":
		if err = s.app.GoParent(); err == nil || watchDegraded(err) {
			s.printListing()
		}
	case "jump":
		if err = s.app.Jump(strings.Join(args, " ")); err == nil || watchDegraded(err) {
			s.printListing()
		}
	case "refresh":
		if err = s.app.Refresh(); err == nil {
			s.printListing()
		}
	case "sel":
		if len(args) == 1 {
			var i int
			if i, err = strconv.Atoi(args[0]); err == nil {
				s.app.Select(i)
				s.printStatus()
			}
		}
	case "mark":
		s.app.ToggleMark()
		s.printStatus()
	case "unmark":
		s.app.ClearMarks()
		s.printStatus()
	case "copy":
		s.app.Clipboard().Set(s.app.WorkingSet(), clipboard.ActionCopy)
		s.printClipboard()
	case "cut":
		s.app.Clipboard().Set(s.app.WorkingSet(), clipboard.ActionCut)
		s.printClipboard()
	case "paste":
		err = s.app.Clipboard().Paste(s.app.Current().CurrentPath)
	case "rm":
		err = s.deleteWorkingSet(false)
	case "trash":
		err = s.deleteWorkingSet(true)
	case "mkdir":
		if len(args) == 1 {
			err = s.app.Clipboard().Create(args[0], s.app.Current().CurrentPath, fs.KindFolder)
		}
	case "touch":
		if len(args) == 1 {
			err = s.app.Clipboard().Create(args[0], s.app.Current().CurrentPath, fs.KindFile)
		}
	case "ren":
		if len(args) == 2 {
			err = s.app.Clipboard().Rename(args[0], args[1], s.app.Current().CurrentPath)
		}
	case "hidden":
		if err = s.app.ToggleHidden(); err == nil {
			fmt.Fprintf(s.out, "hidden files: %v\n", s.app.ShowHidden())
			s.printListing()
		}
	case "find":
		err = s.handleFind(strings.Join(args, " "))
	case "fav":
		err = s.handleFav(args)
	case "count":
		fmt.Fprintf(s.out, "%d items, %d marked\n", s.app.nav.ItemCount(), s.app.MarkedCount())
	case "help":
		s.printHelp()
	default:
		fmt.Fprintf(s.out, "unknown command %q, try help\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

func (s *Shell) deleteWorkingSet(toTrash bool) error {
	items := s.app.WorkingSet()
	if len(items) == 0 {
		return nil
	}
	verb := "delete"
	if toTrash {
		verb = trash.DisplayName()
	}
	if !s.confirm(fmt.Sprintf("%s %d item(s)?", verb, len(items))) {
		return nil
	}
	var err error
	if toTrash {
		err = s.app.Clipboard().Trash(items)
	} else {
		err = s.app.Clipboard().Delete(items)
	}
	s.app.ClearMarks()
	return err
}

// confirm asks before a destructive command when the config demands it.
// Anything but an explicit yes declines.
func (s *Shell) confirm(prompt string) bool {
	if !s.app.cfg.Behavior.ConfirmDelete {
		return true
	}
	fmt.Fprintf(s.out, "%s [y/N]: ", prompt)
	if s.scanner == nil || !s.scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s.scanner.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func (s *Shell) handleFind(query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	items, err := s.app.Find(ctx, query)
	for _, item := range items {
		fmt.Fprintln(s.out, item.Path)
	}
	fmt.Fprintf(s.out, "%d matches\n", len(items))
	return err
}

func (s *Shell) handleFav(args []string) error {
	if len(args) == 0 || args[0] == "ls" {
		marks, err := s.app.Bookmarks()
		if err != nil {
			return err
		}
		for _, m := range marks {
			fmt.Fprintln(s.out, m)
		}
		return nil
	}
	switch args[0] {
	case "add":
		s.app.AddBookmark(s.app.Current().CurrentPath)
	case "rm":
		s.app.RemoveBookmark(s.app.Current().CurrentPath)
	}
	return nil
}

func (s *Shell) printListing() {
	c := s.app.Current()
	sel := s.app.Selection()
	for i, item := range c.Entries {
		cursor := "  "
		if i == sel {
			cursor = "> "
		}
		suffix := ""
		if item.IsDir {
			suffix = "/"
		}
		fmt.Fprintf(s.out, "%s%3d  %s%s\n", cursor, i, item.Name, suffix)
	}
	s.printStatus()
}

func (s *Shell) printStatus() {
	c := s.app.Current()
	fmt.Fprintf(s.out, "[%s] %d items", c.CurrentPath, len(c.Entries))
	if n := s.app.MarkedCount(); n > 0 {
		fmt.Fprintf(s.out, ", %d marked", n)
	}
	if item, ok := s.app.SelectedItem(); ok {
		fmt.Fprintf(s.out, ", on %s", item.Name)
	}
	fmt.Fprintln(s.out)
}

func (s *Shell) printClipboard() {
	st := s.app.Clipboard().Get()
	fmt.Fprintf(s.out, "%s: %d items\n", st.Action, len(st.Items))
}

func (s *Shell) drainEvents() {
	for {
		select {
		case path := <-s.app.Events:
			fmt.Fprintf(s.out, "changed: %s\n", path)
			s.app.log.Debug("directory changed", zap.String("path", path))
		default:
			return
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintf(s.out, `ls                 list current directory
cd [path]          enter selected directory, or jump to path
up                 go to parent directory
jump <path>        go to arbitrary path (~ and relative ok)
refresh            re-read current directory
sel <n>            move selection to index n
mark / unmark      toggle mark on selection / clear marks
copy / cut         arm the clipboard with marked items
paste              apply the clipboard here
rm / trash         delete or %s the marked items
mkdir <name>       create a folder here
touch <name>       create a file here
ren <old> <new>    rename within this directory
find <query>       search below here (name, ext:, size:, contents:)
hidden             toggle dotfile visibility
fav [add|rm|ls]    manage bookmarks
count              item and mark counts
quit               exit
`, trash.DisplayName())
}

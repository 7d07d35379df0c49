// Package shell performs the OS integrations behind the open and copy
// commands: file manager, terminal, editor, reveal and clipboard.
package shell

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// Command names accepted by Launcher.Do. They match the backend command
// surface one to one.
const (
	OpenInFinder   = "open_in_finder"
	OpenInTerminal = "open_in_terminal"
	OpenInEditor   = "open_in_vscode"
	RevealInFinder = "reveal_in_finder"
	CopyPath       = "copy_path_to_clipboard"
)

// Commands lists every command Do understands.
var Commands = []string{OpenInFinder, OpenInTerminal, OpenInEditor, RevealInFinder, CopyPath}

// ErrUnknownCommand is returned by Do for a name not in Commands.
var ErrUnknownCommand = errors.New("shell: unknown command")

// Proc describes a process to start.
type Proc struct {
	Name string
	Args []string
	Dir  string
}

// Runner starts p without waiting for it to exit.
type Runner func(p Proc) error

// Config selects the terminal and editor programs. Empty values fall back
// to a per-OS default.
type Config struct {
	Terminal string
	Editor   string
}

// Launcher runs OS integrations for a path.
type Launcher struct {
	cfg    Config
	goos   string
	run    Runner
	copy   func(string) error
	logger *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithRunner replaces the process starter.
func WithRunner(r Runner) Option { return func(l *Launcher) { l.run = r } }

// WithClipboard replaces the clipboard writer.
func WithClipboard(fn func(string) error) Option { return func(l *Launcher) { l.copy = fn } }

// WithGOOS overrides the detected operating system.
func WithGOOS(goos string) Option { return func(l *Launcher) { l.goos = goos } }

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option { return func(l *Launcher) { l.logger = logger } }

// New creates a Launcher.
func New(cfg Config, opts ...Option) *Launcher {
	l := &Launcher{
		cfg:    cfg,
		goos:   runtime.GOOS,
		run:    start,
		copy:   clipboard.WriteAll,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Known reports whether command is a valid Do argument.
func Known(command string) bool {
	for _, c := range Commands {
		if c == command {
			return true
		}
	}
	return false
}

// Do runs command for path.
func (l *Launcher) Do(command, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("shell: %s: path is required", command)
	}
	var err error
	switch command {
	case OpenInFinder:
		err = l.run(l.openProc(path))
	case RevealInFinder:
		err = l.run(l.revealProc(path))
	case OpenInTerminal:
		err = l.run(l.terminalProc(path))
	case OpenInEditor:
		err = l.run(l.editorProc(path))
	case CopyPath:
		err = l.copy(path)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	if err != nil {
		l.logger.Warn("shell: command failed",
			slog.String("command", command),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("shell: %s: %w", command, err)
	}
	l.logger.Debug("shell: command started", slog.String("command", command), slog.String("path", path))
	return nil
}

func (l *Launcher) openProc(path string) Proc {
	switch l.goos {
	case "darwin":
		return Proc{Name: "open", Args: []string{path}}
	case "windows":
		return Proc{Name: "explorer", Args: []string{path}}
	default:
		return Proc{Name: "xdg-open", Args: []string{path}}
	}
}

func (l *Launcher) revealProc(path string) Proc {
	switch l.goos {
	case "darwin":
		return Proc{Name: "open", Args: []string{"-R", path}}
	case "windows":
		return Proc{Name: "explorer", Args: []string{"/select," + path}}
	default:
		// No portable "select in file manager"; open the parent instead.
		return Proc{Name: "xdg-open", Args: []string{filepath.Dir(path)}}
	}
}

func (l *Launcher) terminalProc(path string) Proc {
	dir := workDir(path)
	if t := strings.Fields(l.cfg.Terminal); len(t) > 0 {
		return Proc{Name: t[0], Args: t[1:], Dir: dir}
	}
	switch l.goos {
	case "darwin":
		return Proc{Name: "open", Args: []string{"-a", "Terminal", dir}}
	case "windows":
		return Proc{Name: "cmd", Args: []string{"/c", "start", "cmd"}, Dir: dir}
	default:
		return Proc{Name: "x-terminal-emulator", Dir: dir}
	}
}

func (l *Launcher) editorProc(path string) Proc {
	e := strings.Fields(l.cfg.Editor)
	if len(e) == 0 {
		e = []string{"code"}
	}
	return Proc{Name: e[0], Args: append(e[1:], path)}
}

// workDir is path itself for a directory and its parent otherwise.
func workDir(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}

func start(p Proc) error {
	if _, err := exec.LookPath(p.Name); err != nil {
		return err
	}
	cmd := exec.Command(p.Name, p.Args...)
	cmd.Dir = p.Dir
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

package main

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// CommandBuilder returns the command running the binary in the given mode.
type CommandBuilder func(mode string, env []string) *exec.Cmd

// Launcher starts the store then the web process and supervises both.
type Launcher struct {
	logger  *zap.Logger
	delay   time.Duration
	command CommandBuilder
	getenv  func(string) string
}

// NewLauncher provides a launcher which re-executes the binary at path
// with args placed before the mode sub-command.
func NewLauncher(logger *zap.Logger, config *Config, path string, args ...string) *Launcher {
	return &Launcher{
		logger: logger,
		delay:  config.Launcher.Delay,
		command: func(mode string, env []string) *exec.Cmd {
			cmd := exec.Command(path, append(append([]string{}, args...), mode)...)
			cmd.Env = append(os.Environ(), env...)
			cmd.Stdin = os.Stdin
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd
		},
		getenv: os.Getenv,
	}
}

type childExit struct {
	mode string
	code int
}

func (l *Launcher) envOr(key, fallback string) string {
	if v := l.getenv(key); v != "" {
		return v
	}
	return fallback
}

// StoreEnv returns the variables set on the store process.
func (l *Launcher) StoreEnv() []string {
	return []string{"BKS_SERVER_PORT=" + l.envOr("BACKEND_PORT", DefaultStorePort)}
}

// WebEnv returns the variables set on the web process.
func (l *Launcher) WebEnv() []string {
	return []string{
		"BKS_WEB_PORT=" + l.envOr("PORT", DefaultWebPort),
		"BACKEND_URL=" + l.envOr("BACKEND_URL", DefaultBackendURL),
	}
}

// start runs the process of mode and reports its exit code on exits.
func (l *Launcher) start(mode string, env []string, exits chan<- childExit) (*exec.Cmd, error) {
	cmd := l.command(mode, env)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	l.logger.Info("launcher: process started", zap.String("process", mode), zap.Int("pid", cmd.Process.Pid))
	go func() {
		exits <- childExit{mode: mode, code: exitCode(cmd.Wait())}
	}()
	return cmd, nil
}

// exitCode converts the result of Wait into a process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
	}
	return 1
}

// Run starts the store, waits for the configured delay then starts the
// web process. It returns the exit code of the first process to exit, or
// 0 once a signal received on sigs has been forwarded to the children.
func (l *Launcher) Run(sigs <-chan os.Signal) int {
	exits := make(chan childExit, 2)
	store, err := l.start(StoreMode, l.StoreEnv(), exits)
	if err != nil {
		l.logger.Error("launcher: failed to start store", zap.Error(err))
		return 1
	}
	children := []*exec.Cmd{store}
	stopAll := func(sig os.Signal) {
		for _, c := range children {
			_ = c.Process.Signal(sig)
		}
	}

	timer := time.NewTimer(l.delay)
	defer timer.Stop()

	for {
		select {
		case sig := <-sigs:
			l.logger.Info("launcher: shutting down", zap.String("signal", sig.String()))
			stopAll(sig)
			return 0

		case e := <-exits:
			l.logger.Info("launcher: process exited", zap.String("process", e.mode), zap.Int("code", e.code))
			stopAll(syscall.SIGTERM)
			return e.code

		case <-timer.C:
			web, err := l.start(WebMode, l.WebEnv(), exits)
			if err != nil {
				l.logger.Error("launcher: failed to start web", zap.Error(err))
				stopAll(syscall.SIGTERM)
				return 1
			}
			children = append(children, web)
		}
	}
}

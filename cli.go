package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// CLI represents the complete command structure of the binary.
type CLI struct {
	Config  string `help:"Path to the yaml configuration file." default:"./config.yml" type:"path"`
	EnvFile string `help:"Path to the optional dotenv file." default:"./config.env" type:"path" name:"env-file"`

	Store StoreCmd `cmd:"" help:"Run the book store api."`
	Web   WebCmd   `cmd:"" help:"Run the web page and the api proxy."`
	Start StartCmd `cmd:"" default:"1" help:"Run the store then the web process."`
}

type (
	StoreCmd struct{}
	WebCmd   struct{}
	StartCmd struct{}
)

func (c *CLI) loadConfig() (*Config, error) {
	config, err := LoadAndInitConfigs(c.Config, c.EnvFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}
	return config, nil
}

func (s *StoreCmd) Run(cli *CLI) error {
	config, err := cli.loadConfig()
	if err != nil {
		return err
	}
	app, err := NewStoreApp(config)
	if err != nil {
		return fmt.Errorf("store failed to initialize: %s", err)
	}
	return app.Run()
}

func (w *WebCmd) Run(cli *CLI) error {
	config, err := cli.loadConfig()
	if err != nil {
		return err
	}
	app, err := NewWebApp(config)
	if err != nil {
		return fmt.Errorf("web failed to initialize: %s", err)
	}
	return app.Run()
}

func (s *StartCmd) Run(cli *CLI) error {
	config, err := cli.loadConfig()
	if err != nil {
		return err
	}
	logger, cleanups, err := NewAppLogger(config, LauncherMode)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	code, err := runLauncher(logger, cleanups, config, cli, os.Executable, sigs)
	signal.Stop(sigs)
	if err != nil {
		return err
	}
	os.Exit(code)
	return nil
}

// runLauncher supervises the store and the web processes and returns the exit
// code to use. The logger cleanups always run before it returns.
func runLauncher(logger *zap.Logger, cleanups []func() error, config *Config, cli *CLI, executable func() (string, error), sigs <-chan os.Signal) (int, error) {
	defer func() {
		for _, f := range cleanups {
			_ = f()
		}
	}()
	path, err := executable()
	if err != nil {
		logger.Error("launcher: failed to locate executable", zap.Error(err))
		return 1, fmt.Errorf("failed to locate executable: %s", err)
	}
	return NewLauncher(logger, config, path, "--config", cli.Config, "--env-file", cli.EnvFile).Run(sigs), nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pimenu-ng/internal/button"
	"pimenu-ng/internal/config"
	"pimenu-ng/internal/logging"
	"pimenu-ng/internal/menu"
	"pimenu-ng/internal/nav"
	"pimenu-ng/internal/output"
	"pimenu-ng/internal/runner"
	"pimenu-ng/internal/ui"
	"pimenu-ng/internal/watch"
)

type flags struct {
	configPath string
	menuPath   string
	logPath    string
	fullscreen bool
	verbose    bool
}

// settings loads the settings file, if any, and applies flag overrides.
func (f *flags) settings() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		cfg, err = config.Load(f.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("config load failed: %w", err)
		}
	}
	if f.menuPath != "" {
		cfg.Menu = f.menuPath
	}
	if f.logPath != "" {
		cfg.Log.Path = f.logPath
	}
	if f.fullscreen {
		cfg.Fullscreen = true
	}
	if f.verbose {
		cfg.Log.Verbose = true
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "pimenu",
		Short: "Tile launcher for shell commands on small touch screens",
		Long: `pimenu shows a YAML menu as a grid of tiles. Branches open a new page,
leaves run their command and show its output until closed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.settings()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "Path to YAML settings")
	root.PersistentFlags().StringVar(&f.menuPath, "menu", "", "Path to the menu file (overrides settings)")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "Debug logging")
	root.Flags().StringVar(&f.logPath, "log", "", "Path of the JSON log file")
	root.Flags().BoolVar(&f.fullscreen, "fullscreen", false, "Use the alternate screen")

	root.AddCommand(newCheckCmd(f))
	return root
}

func newCheckCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the menu file and print its page layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.settings()
			if err != nil {
				return err
			}
			tree, err := menu.Load(cfg.Menu)
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), tree)
			return nil
		},
	}
}

// writeSummary prints one line per page with its grid and one line per leaf
// with the command it launches.
func writeSummary(w io.Writer, tree *menu.Tree) {
	fmt.Fprintf(w, "%s: ok\n", tree.Path)
	var walk func(items []menu.Item, path []string)
	walk = func(items []menu.Item, path []string) {
		n := len(items)
		if len(path) > 0 {
			n++
		}
		rows, cols := nav.Layout(n)
		fmt.Fprintf(w, "/%s: %d tiles, %dx%d\n", strings.Join(path, "/"), n, rows, cols)
		for _, it := range items {
			p := append(append([]string(nil), path...), it.Name)
			if it.IsBranch() {
				walk(it.Items, p)
				continue
			}
			fmt.Fprintf(w, "  %s -> %s\n", strings.Join(p, "/"), strings.Join(it.Argv(p), " "))
		}
	}
	walk(tree.Items, nil)
}

func run(parent context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Log.Path, cfg.Log.Verbose)
	if err != nil {
		return fmt.Errorf("log init failed: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tree, err := menu.Load(cfg.Menu)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("pimenu starting",
		zap.String("menu", tree.Path),
		zap.Int("items", len(tree.Items)),
		zap.Bool("pty", cfg.Runner.PTY),
	)

	var changes <-chan struct{}
	if cfg.Watch.Enable {
		w, err := watch.New(watch.Config{
			Path:         cfg.Menu,
			Debounce:     cfg.Watch.Debounce,
			PollInterval: cfg.Watch.PollInterval,
			ForcePoll:    cfg.Watch.ForcePoll,
			Logger:       logger,
		})
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			logger.Warn("menu watch disabled", zap.Error(err))
		} else {
			defer w.Stop()
			changes = w.Changed()
		}
	}

	var presses <-chan struct{}
	if cfg.GPIO.BackPin > 0 {
		b, err := button.Open(button.Config{Pin: cfg.GPIO.BackPin, Debounce: cfg.GPIO.Debounce, Logger: logger})
		if err != nil {
			logger.Warn("back button disabled", zap.Int("pin", cfg.GPIO.BackPin), zap.Error(err))
		} else {
			defer b.Close()
			presses = b.Presses()
		}
	}

	model := ui.New(ui.Options{
		Tree:   tree,
		Reload: func() (*menu.Tree, error) { return menu.Load(cfg.Menu) },
		Runner: runner.Config{
			PTY:          cfg.Runner.PTY,
			Env:          cfg.Runner.Env,
			WorkDir:      cfg.Runner.WorkDir,
			QueueLines:   cfg.Runner.QueueLines,
			MaxLineBytes: cfg.Runner.MaxLineBytes,
			ExitGrace:    cfg.Runner.ExitGrace,
		},
		Output: output.Config{
			MaxLines:     cfg.Runner.ScrollbackLines,
			MaxLineBytes: cfg.Runner.MaxLineBytes,
			Marker:       cfg.Telemetry.Marker,
		},
		RefreshInterval: cfg.Telemetry.RefreshInterval,
		Changes:         changes,
		Presses:         presses,
		Logger:          logger,
	})
	defer model.Shutdown()

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if cfg.Fullscreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(model, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Ends the signal wait below once the UI has quit.
		defer cancel()
		_, err := program.Run()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		program.Quit()
		return nil
	})
	err = g.Wait()
	logger.Info("pimenu stopping", zap.Error(err))
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pimenu:", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/looperhq/looper/pkg/config"
	"github.com/looperhq/looper/pkg/engine"
	"github.com/looperhq/looper/pkg/journal"
	"github.com/looperhq/looper/pkg/observability"
	"github.com/looperhq/looper/pkg/reasoner"
	"github.com/looperhq/looper/pkg/sensor"
	"github.com/looperhq/looper/pkg/server"
)

// ServeCmd starts the agent and its HTTP API.
type ServeCmd struct {
	Workspace string `help:"Agent workspace (executor root, persisted keys and settings)." env:"LOOPER_WORKSPACE_ROOT" default:"."`
	Bind      string `help:"Host:port the HTTP API listens on." env:"LOOPER_AGENT_BIND" default:"127.0.0.1:10001"`
	Config    string `short:"c" help:"Path to a YAML bootstrap config." type:"path"`
	DB        string `help:"Journal database path or name (overrides config)." placeholder:"PATH"`

	Metrics       bool `help:"Expose Prometheus metrics at /metrics."`
	PluginRouting bool `name:"plugin-routing" help:"Divert plugin route payloads past the frontier reasoner."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	// Journal store. The pool is shared so SQLite never sees two
	// connection sets fighting over the same file.
	dbPool := config.NewDBPool()
	defer dbPool.Close()

	db, err := dbPool.Get(&cfg.Journal)
	if err != nil {
		return fmt.Errorf("failed to open journal database: %w", err)
	}
	store, err := journal.NewStore(db, cfg.Journal.Dialect())
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	metrics, err := observability.InitMetrics(ctx, cfg.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	eng := engine.New(cfg.Workspace,
		engine.WithJournal(store),
		engine.WithMetrics(metrics),
		engine.WithPluginRouting(cfg.PluginRouting),
	)
	// Drain the in-flight iteration before the journal pool closes.
	defer eng.StopLoop()

	watchers, err := registerConfigured(cfg, eng)
	if err != nil {
		return err
	}

	keys, err := config.LoadKeys(cfg.Workspace)
	if err != nil {
		return fmt.Errorf("failed to load keys: %w", err)
	}

	selection := rehydrateModels(cfg.Workspace, eng, keys)

	srv := server.New(cfg, eng, keys,
		server.WithJournal(store),
		server.WithObservability(cfg.Metrics),
	)

	printServeInfo(cfg, srv, selection)

	// The server and the sensor watchers live and die together: a bind
	// failure closes the watchers, a watcher failure shuts the server
	// down.
	g, gctx := errgroup.WithContext(ctx)
	for _, watcher := range watchers {
		watcher := watcher
		g.Go(func() error {
			if err := watcher.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			return watcher.Close()
		})
	}
	g.Go(func() error {
		return srv.Start(gctx)
	})
	return g.Wait()
}

// loadConfig reads the optional YAML bootstrap and applies CLI
// overrides on top. A flag only overrides when it differs from its
// default, so file values survive unspecified flags.
func (c *ServeCmd) loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if c.Config != "" {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		slog.Info("loaded configuration", "path", c.Config)
	}

	if c.Workspace != "" && c.Workspace != "." {
		cfg.Workspace = c.Workspace
	}
	if c.Bind != "" && c.Bind != config.DefaultBind {
		cfg.Bind = c.Bind
	}
	if c.DB != "" {
		cfg.Journal.Database = c.DB
	}
	if c.Metrics {
		cfg.Metrics = true
	}
	if c.PluginRouting {
		cfg.PluginRouting = true
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// registerConfigured installs the sensors and actuators declared in the
// bootstrap config. It returns an unstarted watcher per
// directory-ingress sensor.
func registerConfigured(cfg *config.Config, eng *engine.Engine) ([]*sensor.Watcher, error) {
	var watchers []*sensor.Watcher

	for i := range cfg.Sensors {
		sn, err := cfg.Sensors[i].ToSensor()
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", cfg.Sensors[i].Name, err)
		}
		if err := eng.AddSensor(sn); err != nil {
			return nil, fmt.Errorf("sensor %q: %w", sn.Name, err)
		}
		if sn.Ingress.Mode == sensor.IngressDirectory {
			watcher, err := sensor.NewWatcher(sn, func(name, content string) error {
				_, err := eng.Enqueue(name, content, "")
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("sensor %q: %w", sn.Name, err)
			}
			watchers = append(watchers, watcher)
		}
	}

	for i := range cfg.Actuators {
		a, err := cfg.Actuators[i].ToActuator()
		if err != nil {
			return nil, fmt.Errorf("actuator %q: %w", cfg.Actuators[i].Name, err)
		}
		if err := eng.AddActuator(a); err != nil {
			return nil, fmt.Errorf("actuator %q: %w", a.Name, err)
		}
	}
	return watchers, nil
}

// rehydrateModels restores a persisted model selection. When none is
// stored the agent comes up unconfigured; the loop is only ever started
// through the API.
func rehydrateModels(workspace string, eng *engine.Engine, keys *config.Keys) *config.AgentSettings {
	settings, err := config.LoadSettings(workspace)
	if err != nil {
		slog.Warn("failed to load persisted model selection", "error", err)
		return nil
	}
	if !settings.Complete() {
		return nil
	}

	local, frontier, err := reasoner.BuildTiers(settings, keys)
	if err != nil {
		slog.Warn("persisted model selection no longer builds", "error", err)
		return nil
	}
	if err := eng.ConfigureReasoners(*settings, local, frontier); err != nil {
		slog.Warn("failed to restore model selection", "error", err)
		return nil
	}

	slog.Info("model selection restored",
		"local", settings.LocalProvider+"/"+settings.LocalModel,
		"frontier", settings.FrontierProvider+"/"+settings.FrontierModel)
	return settings
}

func printServeInfo(cfg *config.Config, srv *server.Server, selection *config.AgentSettings) {
	greenColor := "\033[38;2;16;185;129m"
	resetColor := "\033[0m"

	fmt.Printf("\n%slooper agent ready%s\n", greenColor, resetColor)
	fmt.Printf("   API:        http://%s/api\n", srv.Address())
	fmt.Printf("   Health:     http://%s/api/health\n", srv.Address())
	fmt.Printf("   Dashboard:  http://%s/api/dashboard\n", srv.Address())
	fmt.Printf("   Workspace:  %s\n", cfg.Workspace)
	fmt.Printf("   Journal:    %s (%s)\n", cfg.Journal.Driver, cfg.Journal.Database)
	if cfg.Metrics {
		fmt.Printf("   Metrics:    http://%s/metrics\n", srv.Address())
	}
	if cfg.PluginRouting {
		fmt.Printf("   Plugins:    route contract at http://%s/api/plugins/route_contract\n", srv.Address())
	}
	if selection != nil {
		fmt.Printf("   Models:     %s/%s (local), %s/%s (frontier)\n",
			selection.LocalProvider, selection.LocalModel,
			selection.FrontierProvider, selection.FrontierModel)
	} else {
		fmt.Printf("   Models:     not configured (POST /api/config/models)\n")
	}
	fmt.Println("\nPress Ctrl+C to stop")
}

// Package app wires the asset server together and runs its startup sequence:
// ensure directories, bind, print the banner, launch the browser, serve.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dreschagin/asset-server/internal/assets"
	"github.com/dreschagin/asset-server/internal/browser"
	"github.com/dreschagin/asset-server/internal/httpx"
	"github.com/dreschagin/asset-server/internal/metrics"
	"github.com/dreschagin/asset-server/internal/server"
	"github.com/dreschagin/asset-server/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
)

// App is a single asset server instance.
type App struct {
	cfg    *config.Config
	root   string
	out    io.Writer
	logger *slog.Logger
	opener browser.Opener

	metrics *metrics.Metrics
	assets  *server.Server
	ops     *server.Server

	started bool
}

// New resolves the document root and builds the servers. Nothing is bound yet.
// out receives the banner, the access log and the stop message.
func New(cfg *config.Config, out io.Writer, logger *slog.Logger, opener browser.Opener) (*App, error) {
	root, err := assets.ResolveRoot(cfg.Assets.Root)
	if err != nil {
		return nil, err
	}

	out = &syncWriter{w: out}
	m := metrics.New(prometheus.NewRegistry(), cfg.Assets.Dirs)
	handler := server.NewAssetHandler(root, httpx.NewAccessLog(out), m, logger)

	a := &App{
		cfg:     cfg,
		root:    root,
		out:     out,
		logger:  logger,
		opener:  opener,
		metrics: m,
		assets:  server.New("assets", cfg.Server, handler, logger),
	}

	if cfg.Metrics.Port != "" {
		opsCfg := cfg.Server
		opsCfg.Port = cfg.Metrics.Port
		a.ops = server.New("ops", opsCfg, server.NewOpsHandler(m, a.assets), logger)
	}

	return a, nil
}

// Root returns the absolute document root.
func (a *App) Root() string {
	return a.root
}

// URL returns the browser URL of the bound asset server.
func (a *App) URL() string {
	return fmt.Sprintf("http://%s:%d", a.cfg.Browser.Host, a.assets.Port())
}

// Start creates the asset directories, binds the listeners and prints the
// banner. Every error it returns is fatal.
func (a *App) Start() error {
	created, err := assets.EnsureDirs(a.root, a.cfg.Assets.Dirs)
	for _, dir := range created {
		a.metrics.DirectoriesCreated.Inc()
		a.logger.Info("asset directory created", "dir", dir, "root", a.root)
	}
	if err != nil {
		return err
	}

	if err := a.assets.Listen(); err != nil {
		return err
	}
	if a.ops != nil {
		if err := a.ops.Listen(); err != nil {
			_ = a.assets.Close()
			return err
		}
	}
	a.started = true

	a.printBanner()
	return nil
}

func (a *App) printBanner() {
	url := a.URL()
	fmt.Fprintf(a.out, "Starting server in directory: %s\n", a.root)
	fmt.Fprintf(a.out, "Server will be available at %s\n", url)
	fmt.Fprintf(a.out, "Place your model files in the '%s' directory\n", a.cfg.Assets.Dirs[0])
	fmt.Fprintln(a.out, "Press Ctrl+C to stop the server")
	if a.ops != nil {
		fmt.Fprintf(a.out, "Metrics available at http://%s:%d/metrics\n", a.cfg.Browser.Host, a.ops.Port())
	}
	if a.cfg.Browser.Enabled {
		fmt.Fprintln(a.out, "Server started successfully. Opening browser...")
	} else {
		fmt.Fprintln(a.out, "Server started successfully.")
	}
}

// Run serves until ctx is done and prints the stop message. The browser is
// launched in the background after the configured delay.
func (a *App) Run(ctx context.Context) error {
	if !a.started {
		if err := a.Start(); err != nil {
			return err
		}
	}

	launchCtx, cancelLaunch := context.WithCancel(ctx)
	defer cancelLaunch()

	var launched <-chan struct{}
	if a.cfg.Browser.Enabled {
		url := a.URL()
		launched = browser.NewLauncher(a.opener, a.cfg.Browser.Delay).Launch(launchCtx, url, func(err error) {
			a.reportLaunch(url, err)
		})
	}

	opsCtx, stopOps := context.WithCancel(ctx)
	defer stopOps()

	var opsErr chan error
	if a.ops != nil {
		opsErr = make(chan error, 1)
		go func() {
			opsErr <- a.ops.Serve(opsCtx)
		}()
	}

	err := a.assets.Serve(ctx)

	stopOps()
	cancelLaunch()
	if launched != nil {
		select {
		case <-launched:
		case <-time.After(a.cfg.Server.ShutdownTimeout):
			a.logger.Warn("browser launch still running at shutdown")
		}
	}
	if opsErr != nil {
		if opsServeErr := <-opsErr; opsServeErr != nil {
			a.logger.Error("ops server failed", "error", opsServeErr)
		}
	}

	fmt.Fprintln(a.out, "\nServer stopped.")
	return err
}

func (a *App) reportLaunch(url string, err error) {
	switch {
	case err == nil:
		a.metrics.BrowserLaunchSucceeded.Inc()
	case errors.Is(err, context.Canceled):
	default:
		a.metrics.BrowserLaunchFailures.Inc()
		a.logger.Warn("browser launch failed", "url", url, "error", err)
		fmt.Fprintf(a.out, "Could not open browser automatically. Please navigate to %s\n", url)
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

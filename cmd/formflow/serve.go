package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/platform"
	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/pkg/client"
	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/formsource"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/theme"
)

var serveFlags struct {
	addr      string
	forms     string
	db        string
	apiBase   string
	publicURL string
	themes    string
	templates string
	grace     time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve embedded forms and the reference backend",
	Long: `Serves the embed endpoints under /embed. Without --api-base the
reference backend also serves forms from --forms, verifies domains and stores
submissions in the SQLite database at --db under /api.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "listen address (FORMFLOW_ADDR)")
	f.StringVar(&serveFlags.forms, "forms", "", "form definitions directory (FORMFLOW_FORMS_DIR)")
	f.StringVar(&serveFlags.db, "db", "", "SQLite database path (FORMFLOW_DB_PATH)")
	f.StringVar(&serveFlags.apiBase, "api-base", "", "remote collaborator API base URL (FORMFLOW_API_BASE)")
	f.StringVar(&serveFlags.publicURL, "public-url", "", "public base URL advertised in API documents (FORMFLOW_PUBLIC_URL)")
	f.StringVar(&serveFlags.themes, "themes", "", "theme manifests directory (default <forms>/themes)")
	f.StringVar(&serveFlags.templates, "templates", "", "vanilla template overrides directory (FORMFLOW_TEMPLATES_DIR)")
	f.DurationVar(&serveFlags.grace, "grace", 5*time.Second, "shutdown grace period")
}

func runServe(cmd *cobra.Command, _ []string) error {
	override(&cfg.Addr, serveFlags.addr)
	override(&cfg.FormsDir, serveFlags.forms)
	override(&cfg.DBPath, serveFlags.db)
	override(&cfg.APIBase, serveFlags.apiBase)
	override(&cfg.PublicURL, serveFlags.publicURL)
	override(&cfg.TemplatesDir, serveFlags.templates)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	gateOpts := []embed.Option{embed.WithLogger(logger)}

	var forms embed.FormSource
	if cfg.APIBase != "" {
		remote, err := client.New(cfg.APIBase, client.WithLogger(logger))
		if err != nil {
			return err
		}
		forms = remote
		gateOpts = append(gateOpts, embed.WithVerifier(remote), embed.WithSubmitter(remote))
		logger.Info("using remote collaborator api", zap.String("api_base", cfg.APIBase))
	} else {
		backend, closeStore, err := localBackend(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		forms = backend
		gateOpts = append(gateOpts, embed.WithVerifier(backend), embed.WithSubmitter(backend))
		platform.NewAPI(backend,
			platform.WithServerURL(cfg.PublicURL+"/api"),
			platform.WithAPILogger(logger),
		).Register(mux)
	}

	resolver, err := themeResolver()
	if err != nil {
		return err
	}
	if resolver != nil {
		gateOpts = append(gateOpts, embed.WithThemeResolver(resolver))
	}

	gate, err := embed.NewGate(forms, gateOpts...)
	if err != nil {
		return err
	}
	sessions := session.NewMemoryStore(session.WithTTL(cfg.SessionTTL))
	go sessions.Run(ctx, time.Minute)

	srvOpts := []server.Option{server.WithSessionStore(sessions), server.WithLogger(logger)}
	if cfg.TemplatesDir != "" {
		html, err := vanilla.New(
			vanilla.WithStylesheet("/embed/assets/"+vanilla.StylesheetName),
			vanilla.WithTemplateOverrides(cfg.TemplatesDir),
		)
		if err != nil {
			return err
		}
		srvOpts = append(srvOpts, server.WithRenderer(html))
		logger.Info("template overrides", zap.String("dir", cfg.TemplatesDir))
	}
	srv, err := server.New(gate, srvOpts...)
	if err != nil {
		return err
	}
	srv.Register(mux)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	logger.Info("listening", zap.String("addr", cfg.Addr))

	select {
	case err := <-errChan:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveFlags.grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}

func localBackend(ctx context.Context) (*platform.Backend, func(), error) {
	forms, err := formsource.LoadFS(os.DirFS(cfg.FormsDir))
	if err != nil {
		return nil, nil, err
	}
	logger.Info("forms loaded", zap.String("dir", cfg.FormsDir), zap.Strings("ids", forms.IDs()))
	if cfg.Watch {
		go func() {
			err := forms.Watch(ctx, cfg.FormsDir,
				formsource.WithWatchLogger(logger),
				formsource.WithReloadHook(func(ids []string, err error) {
					if err == nil {
						logger.Info("forms reloaded", zap.Strings("ids", ids))
					}
				}))
			if err != nil && ctx.Err() == nil {
				logger.Error("watch forms", zap.Error(err))
			}
		}()
	}

	store, err := platform.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	backend, err := platform.NewBackend(forms, store, platform.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return backend, func() { store.Close() }, nil
}

// themeResolver registers the manifests of the themes directory when a
// theme is configured.
func themeResolver() (*theme.Resolver, error) {
	if cfg.Theme == "" {
		return nil, nil
	}
	dir := serveFlags.themes
	if dir == "" {
		dir = filepath.Join(cfg.FormsDir, "themes")
	}
	selector := theme.NewManifestSelector(cfg.Theme, cfg.ThemeVariant)
	names, err := selector.LoadManifests(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	logger.Info("themes loaded", zap.String("dir", dir), zap.Strings("themes", names))
	return theme.NewResolver(
		theme.WithSelector(selector, cfg.Theme, cfg.ThemeVariant),
		theme.WithLogger(logger),
	), nil
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

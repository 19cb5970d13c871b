package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"

	route "github.com/bassista/go_persist/internal/api/route"
	appctx "github.com/bassista/go_persist/internal/app"
	"github.com/bassista/go_persist/internal/config"
	"github.com/bassista/go_persist/internal/logger"
	"github.com/bassista/go_persist/internal/report"
	"github.com/gin-gonic/gin"

	"github.com/enrichman/httpgrace"
)

const defaultConfigDir = "./config"

// configDir returns GO_PERSIST_CONFIG_DIR, or ./config.
func configDir() string {
	if dir := os.Getenv("GO_PERSIST_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultConfigDir
}

func main() {
	cfg, err := config.LoadConfig(configDir())
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	if err := logger.Configure(cfg.Misc.LogLevel, nil); err != nil {
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info': %v", cfg.Misc.LogLevel, err)
	}
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)
	logger.WithComponent("main").Infof("Document file: %s (%s), persisted every %v", cfg.Data.FilePath, cfg.Data.ResolvedFormat(), cfg.Data.PersistInterval)

	doc, err := appctx.NewDocument(cfg.Data)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init document: %v", err)
	}

	app, err := appctx.New(cfg, doc, report.FromEnv())
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer func() {
		if err := app.Shutdown(); err != nil {
			logger.WithComponent("main").Errorf("shutdown: %v", err)
		}
	}()

	if err := app.Bootstrap(app.BaseCtx); err != nil {
		logger.WithComponent("main").Fatalf("cannot load data file: %v", err)
	}
	if err := app.StartWatchers(); err != nil {
		logger.WithComponent("main").Fatal(err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := route.SetupRoutes(app)
	srv := createGraceHttpServer(app.BaseCtx, "main-server", app.Config.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Error(err)
	}
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/tonvanhoang/BE/internal/api"
	"github.com/tonvanhoang/BE/internal/hub"
	"github.com/tonvanhoang/BE/internal/router"
	"github.com/tonvanhoang/BE/internal/server/middleware"
	"github.com/tonvanhoang/BE/internal/store"
	"github.com/tonvanhoang/BE/pkg/config"
	"github.com/tonvanhoang/BE/pkg/state"
	"github.com/tonvanhoang/BE/pkg/state/statemanager"
	"github.com/tonvanhoang/BE/pkg/transport"
)

type App struct {
	logger       *slog.Logger
	stateManager state.Manager
	hub          *hub.Hub
	eventRouter  *router.EventRouter
	wg           sync.WaitGroup
	http         *http.Server
	config       *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, st *store.Store) *App {
	stateManager := statemanager.NewInMemoryManager(logger)
	broadcastHub := hub.New(logger, stateManager)
	eventRouter := router.New(logger, stateManager, broadcastHub)
	completionAPI := api.New(logger, st, stateManager, broadcastHub)

	app := &App{
		logger:       logger,
		stateManager: stateManager,
		hub:          broadcastHub,
		eventRouter:  eventRouter,
		config:       cfg,
		ctx:          rootCtx,
	}

	rateLimiter := middleware.NewIPRateLimiter(logger, cfg.Server.RateLimit)

	mux := http.NewServeMux()
	mux.Handle("/ws",
		middleware.Chain(http.HandlerFunc(app.upgradeHandler),
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			rateLimiter,
		),
	)

	apiMux := http.NewServeMux()
	completionAPI.Routes(apiMux)
	mux.Handle("/api/",
		middleware.Chain(apiMux,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			middleware.NewCORS(cfg.Server.CORSOrigin),
			rateLimiter,
			middleware.NewAPIAuth(logger, cfg.Server.Auth.APISecret),
		),
	)

	app.http = &http.Server{Addr: cfg.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	var ip string
	if reqMeta != nil {
		ip = reqMeta.IP
	}
	connLogger := a.logger.With(slog.String("remoteAddr", ip))

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		a.ctx,
		&a.wg,
		wsConn,
		transport.Config(a.config.Transport),
		a.logger,
	)
	if _, err := a.stateManager.RegisterConnection(conn); err != nil {
		connLogger.Error("Failed to register connection state", slog.Any("error", err))
		conn.Close(err)
		return
	}

	// Connections start anonymous. Identity arrives later on the socket via
	// the user_connected event; until then the connection can join rooms and
	// receive room broadcasts but is invisible to presence.
	conn.SetOnMessageHandler(a.eventRouter.HandleMessage)
	conn.SetOnCloseHandler(a.eventRouter.HandleClose)

	connLogger.Info("Connection established", slog.String("connID", conn.ID().String()))
	conn.Run()
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	for _, conn := range a.stateManager.Connections() {
		conn.Transport.Close(errors.New("graceful shutdown"))
	}

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}

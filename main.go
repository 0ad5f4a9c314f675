package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/classvote/auth"
	"github.com/danielhkuo/classvote/cliparse"
	"github.com/danielhkuo/classvote/db"
	"github.com/danielhkuo/classvote/handlers"
	"github.com/danielhkuo/classvote/ledger"
	"github.com/danielhkuo/classvote/middleware"
	"github.com/danielhkuo/classvote/router"
	"github.com/danielhkuo/classvote/student"
	"github.com/danielhkuo/classvote/teacher"
	"github.com/danielhkuo/classvote/transport"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Role {
	case cliparse.RoleStudent:
		err = runStudent(ctx, cfg)
	default:
		err = runTeacher(ctx, cfg)
	}
	if err != nil {
		slog.Error("exiting", "role", cfg.Role, "error", err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		slog.Warn("unknown log level, using info", "level", level)
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func runTeacher(ctx context.Context, cfg cliparse.Config) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.AdminKey == "" {
		key, err := auth.GenerateAdminKey()
		if err != nil {
			return err
		}
		cfg.AdminKey = key
		slog.Info("generated admin key for this run", "admin_key", key)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := teacher.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	console := newTeacherConsole(os.Stdout)
	srv, err := teacher.New(store, teacher.Options{
		Candidates:   cfg.Candidates,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		Observer:     console,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	console.srv = srv
	defer srv.Close()

	l, err := transport.Listen(cfg.Listen)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           middleware.CORS(router.NewRouter(srv, store, reg, cfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Accepting students", "addr", l.Addr().String())
		return srv.Serve(gctx, l)
	})

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
		return srv.Close()
	})

	g.Go(func() error {
		return console.Run(gctx, os.Stdin)
	})

	err = g.Wait()
	slog.Info("Server closed")
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// voteStore is what the teacher and its HTTP API need from the ledger
type voteStore interface {
	teacher.Store
	handlers.VoteLister
}

func openStore(cfg cliparse.Config) (voteStore, func(), error) {
	if cfg.DatabaseType == "memory" {
		slog.Warn("votes are kept in memory and lost on exit")
		return ledger.NewMemory(), func() {}, nil
	}

	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		dbConn.Close()
		return nil, nil, fmt.Errorf("schema creation failed: %w", err)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	return ledger.New(dbConn), func() { dbConn.Close() }, nil
}

func runStudent(ctx context.Context, cfg cliparse.Config) error {
	if _, err := transport.ParseEndpoint(cfg.Peer); err != nil {
		return err
	}

	console := newStudentConsole(os.Stdout)
	dial := func(ctx context.Context) (net.Conn, error) {
		return transport.Dial(ctx, cfg.Peer)
	}
	sess := student.New(dial, console, student.Options{
		WriteTimeout:      cfg.WriteTimeout,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    time.Second,
	})
	defer sess.Close()
	console.sess = sess

	// A failed first connect is reported on the console; VOTE dials again
	if err := sess.Connect(ctx); err != nil {
		slog.Warn("initial connect failed", "peer", cfg.Peer, "error", err)
	}

	err := console.Run(ctx, os.Stdin)
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khanabook/pos-station/internal/api"
	"github.com/khanabook/pos-station/internal/auth"
	"github.com/khanabook/pos-station/internal/billing"
	"github.com/khanabook/pos-station/internal/config"
	"github.com/khanabook/pos-station/internal/enum"
	"github.com/khanabook/pos-station/internal/handler"
	"github.com/khanabook/pos-station/internal/localdb"
	"github.com/khanabook/pos-station/internal/model"
	"github.com/khanabook/pos-station/internal/pending"
	"github.com/khanabook/pos-station/internal/realtime"
	"github.com/khanabook/pos-station/internal/reconcile"
	"github.com/khanabook/pos-station/internal/router"
	"github.com/khanabook/pos-station/internal/syncer"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := localdb.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	pool, err := localdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("local db: %v", err)
	}
	defer pool.Close()

	session := auth.NewSession()
	remote := api.New(cfg.BackendURL, session)
	store := pending.NewPgStore(pool)
	drafts := pending.NewPgDraftLog(pool)

	boards := map[string]*reconcile.Reconciler{
		enum.RoleWaiter:  reconcile.New(enum.RoleWaiter),
		enum.RoleKitchen: reconcile.New(enum.RoleKitchen),
		enum.RoleCounter: reconcile.New(enum.RoleCounter),
		enum.RoleManager: reconcile.New(enum.RoleManager),
	}
	fanout := func(order model.Order) {
		for _, board := range boards {
			board.Apply(order)
		}
	}

	coordinator := syncer.New(store, remote, syncer.Options{
		Notify: &stationNotifier{session: session},
		Drafts: drafts,
	})

	dispatcher := realtime.Dispatcher{
		OnOrder:       fanout,
		OnOrderUpdate: fanout,
		OnTable: func(u model.TableUpdate) {
			log.Printf("table %s -> %s", u.TableNumber, u.Status)
		},
		OnStockAlert: func(msg string) {
			log.Printf("stock alert: %s", msg)
		},
	}
	channel := realtime.Dial(ctx, cfg.BackendWSURL, realtime.Callbacks{
		OnEvent: dispatcher.Dispatch,
		OnConnect: func() {
			log.Printf("push channel connected")
			coordinator.NotifyOnline(ctx)
		},
		OnDisconnect: func(err error) {
			log.Printf("push channel down: %v", err)
			coordinator.NotifyOffline()
		},
	}, realtime.Options{Tokens: session})
	defer channel.Close()

	station := handler.NewStation(remote, store, drafts, session, coordinator, boards,
		billing.Config{GSTEnabled: cfg.GSTEnabled, DefaultGSTPercent: cfg.DefaultGSTPercent})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router.New(cfg, station),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coordinator.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("station (%s role) listening on :%s", cfg.Role, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("station exited: %v", err)
	}
}

// stationNotifier reports drain outcomes in the station log; the UI polls
// /sync/status and /sync/dead-letters for the same information. A 401
// during replay drops the session so the UI forces a fresh login.
type stationNotifier struct {
	session *auth.Session
}

func (n *stationNotifier) SyncCompleted(removed int) {
	log.Printf("sync complete: %d action(s) replayed", removed)
}

func (n *stationNotifier) ActionDeadLettered(a pending.PendingAction, cause string) {
	log.Printf("ERROR: action %d (%s) moved to dead letters: %s", a.ID, a.Kind, cause)
}

func (n *stationNotifier) AuthExpired() {
	log.Printf("ERROR: session expired during sync, re-authentication required")
	n.session.Clear()
}

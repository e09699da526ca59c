// Package syncer drains the pending-action queue against the backend.
// One coordinator owns the Idle/Draining state; triggers that arrive while
// a drain is running are ignored rather than queued.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/khanabook/pos-station/internal/api"
	"github.com/khanabook/pos-station/internal/enum"
	"github.com/khanabook/pos-station/internal/model"
	"github.com/khanabook/pos-station/internal/pending"
)

const (
	defaultInterval    = 10 * time.Second
	defaultMaxAttempts = 3
)

// ErrAlreadyDraining is returned by Drain when another drain holds the
// coordinator.
var ErrAlreadyDraining = errors.New("sync already in progress")

type state int

const (
	stateIdle state = iota
	stateDraining
)

// RemoteAPI is the slice of the backend client the coordinator replays
// against. Health doubles as the connectivity probe.
type RemoteAPI interface {
	CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error)
	ProcessPayment(ctx context.Context, draft model.PaymentDraft) (model.Payment, error)
	Health(ctx context.Context) error
}

// Notifier receives drain outcomes for the UI. Implementations must not
// block.
type Notifier interface {
	SyncCompleted(removed int)
	ActionDeadLettered(action pending.PendingAction, cause string)
	// AuthExpired fires when a replay hit a 401. The session must be
	// cleared and the operator re-authenticated; the queue is untouched.
	AuthExpired()
}

// Options tune the coordinator. Zero values pick the defaults.
type Options struct {
	Interval    time.Duration
	MaxAttempts int32
	Notify      Notifier
	Drafts      pending.DraftLog
}

// Coordinator drains the queue FIFO. Network-class failures stop the whole
// drain so a payment is never replayed ahead of the order creation it
// depends on; application-class failures dead-letter after MaxAttempts and
// let the rest of the queue through.
type Coordinator struct {
	store pending.Store
	api   RemoteAPI
	opts  Options

	mu     sync.Mutex
	state  state
	online bool
}

func New(store pending.Store, remote RemoteAPI, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Coordinator{store: store, api: remote, opts: opts}
}

// Run probes connectivity and drains on the ticker, on the offline-to-online
// transition, and once at startup. Blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	c.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// NotifyOnline is called by the realtime channel when the push connection
// comes back. A reconnect means the backend is reachable again, so drain
// immediately instead of waiting for the next tick.
func (c *Coordinator) NotifyOnline(ctx context.Context) {
	c.setOnline(true)
	if err := c.Drain(ctx); err != nil && !errors.Is(err, ErrAlreadyDraining) {
		log.Printf("ERROR: drain on reconnect: %v", err)
	}
}

// NotifyOffline is called when the push connection drops.
func (c *Coordinator) NotifyOffline() {
	c.setOnline(false)
}

func (c *Coordinator) setOnline(online bool) {
	c.mu.Lock()
	c.online = online
	c.mu.Unlock()
}

func (c *Coordinator) tick(ctx context.Context) {
	if err := c.api.Health(ctx); err != nil {
		c.setOnline(false)
		return
	}
	c.setOnline(true)
	if err := c.Drain(ctx); err != nil && !errors.Is(err, ErrAlreadyDraining) {
		log.Printf("ERROR: scheduled drain: %v", err)
	}
}

// Online reports the last probed connectivity state.
func (c *Coordinator) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Drain snapshots the queue and replays it in insertion order. Returns
// ErrAlreadyDraining if a drain is running, otherwise the error that
// stopped the drain, if any.
func (c *Coordinator) Drain(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateDraining {
		c.mu.Unlock()
		return ErrAlreadyDraining
	}
	c.state = stateDraining
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = stateIdle
		c.mu.Unlock()
	}()

	actions, err := c.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("snapshot queue: %w", err)
	}

	removed := 0
	for _, action := range actions {
		err := c.dispatch(ctx, action)
		if err == nil {
			if err := c.store.Remove(ctx, action.ID); err != nil {
				return fmt.Errorf("remove action %d: %w", action.ID, err)
			}
			removed++
			continue
		}

		if api.IsNetworkClass(err) {
			// Backend unreachable. Leave this and everything after it
			// untouched; the next tick retries from here.
			log.Printf("sync stopped at action %d: %v", action.ID, err)
			break
		}

		if errors.Is(err, api.ErrAuthExpired) {
			// The token died, not the action. Stop the drain with the
			// queue intact; replays resume after the operator logs in.
			log.Printf("sync stopped at action %d: session expired", action.ID)
			if c.opts.Notify != nil {
				c.opts.Notify.AuthExpired()
			}
			break
		}

		// Application-class rejection. Count the attempt; after the limit
		// the action moves aside so it cannot block the queue forever.
		cause := err.Error()
		attempts, markErr := c.store.MarkAttempt(ctx, action.ID, cause)
		if markErr != nil {
			return fmt.Errorf("mark attempt on action %d: %w", action.ID, markErr)
		}
		if attempts >= c.opts.MaxAttempts {
			if err := c.store.MoveToDeadLetters(ctx, action.ID, cause); err != nil {
				return fmt.Errorf("dead-letter action %d: %w", action.ID, err)
			}
			log.Printf("ERROR: action %d (%s) dead-lettered after %d attempts: %s",
				action.ID, action.Kind, attempts, cause)
			if c.opts.Notify != nil {
				c.opts.Notify.ActionDeadLettered(action, cause)
			}
		}
	}

	if removed > 0 && c.opts.Notify != nil {
		c.opts.Notify.SyncCompleted(removed)
	}
	return nil
}

func (c *Coordinator) dispatch(ctx context.Context, action pending.PendingAction) error {
	switch action.Kind {
	case enum.ActionCreateOrder:
		var draft model.OrderDraft
		if err := json.Unmarshal(action.Payload, &draft); err != nil {
			return &api.ValidationError{Message: fmt.Sprintf("undecodable order draft: %v", err)}
		}
		if _, err := c.api.CreateOrder(ctx, draft); err != nil {
			return err
		}
		if c.opts.Drafts != nil {
			if err := c.opts.Drafts.MarkSynced(ctx, action.IdempotencyKey); err != nil {
				log.Printf("ERROR: mark draft %s synced: %v", action.IdempotencyKey, err)
			}
		}
		return nil

	case enum.ActionProcessPayment:
		var draft model.PaymentDraft
		if err := json.Unmarshal(action.Payload, &draft); err != nil {
			return &api.ValidationError{Message: fmt.Sprintf("undecodable payment draft: %v", err)}
		}
		_, err := c.api.ProcessPayment(ctx, draft)
		return err

	default:
		return &api.ValidationError{Message: fmt.Sprintf("unknown action kind %q", action.Kind)}
	}
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	log "github.com/sirupsen/logrus"

	"github.com/tentens-tech/shared-debrid/internal/application/command/leasemanagement"
	"github.com/tentens-tech/shared-debrid/internal/config"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/metrics"
	"github.com/tentens-tech/shared-debrid/internal/infrastructure/storage"
)

// Target names the lease document a request works on. Token is only
// meaningful to backends that authenticate per caller.
type Target struct {
	Token       string
	ContainerID string
	FileName    string
}

// StoreFactory opens the store holding target's document.
type StoreFactory func(ctx context.Context, target Target) (storage.Store, error)

type Application struct {
	Ctx    context.Context
	Config *config.Config
	Stores StoreFactory
	Clock  clock.Clock
}

// Decision is the outcome of one access request.
type Decision struct {
	Granted   bool
	Requester string
	Holder    string
	EndedAt   time.Time
}

func New(ctx context.Context, cfg *config.Config, stores StoreFactory) *Application {
	return &Application{
		Ctx:    ctx,
		Config: cfg,
		Stores: stores,
		Clock:  clock.WallClock,
	}
}

func (a *Application) newManager(ctx context.Context, target Target) (*leasemanagement.Manager, error) {
	store, err := a.Stores(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to open store for container %v: %w", target.ContainerID, err)
	}

	fileName := target.FileName
	if fileName == "" && a.Config != nil {
		fileName = a.Config.Storage.FileName
	}

	return leasemanagement.NewManager(store,
		leasemanagement.WithFileName(fileName),
		leasemanagement.WithClock(a.Clock),
	), nil
}

// Access decides whether requester may use the shared account. A grant
// makes requester the holder for sessionMinutes from now; a denial leaves
// the document untouched.
func (a *Application) Access(ctx context.Context, target Target, requester string, sessionMinutes any) (Decision, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	manager, err := a.newManager(ctx, target)
	if err != nil {
		metrics.LeaseDecisions.WithLabelValues(metrics.DecisionFailed).Inc()
		return Decision{}, err
	}

	state, err := manager.Get(ctx)
	if err != nil {
		metrics.LeaseDecisions.WithLabelValues(metrics.DecisionFailed).Inc()
		return Decision{}, err
	}

	now := a.Clock.Now()
	if !state.CanAccess(requester, now) {
		log.Debugf("Access denied for %v on %v, lease held by %v until %v", requester, manager.FileName(), state.Holder, state.Serialize().EndedAt)
		metrics.LeaseDecisions.WithLabelValues(metrics.DecisionDenied).Inc()
		return Decision{
			Granted:   false,
			Requester: requester,
			Holder:    state.Holder,
			EndedAt:   state.EndedAt,
		}, nil
	}

	if _, err = manager.Update(ctx, requester, sessionMinutes); err != nil {
		metrics.LeaseDecisions.WithLabelValues(metrics.DecisionFailed).Inc()
		return Decision{}, err
	}

	state = manager.State()
	log.Debugf("Access granted for %v on %v until %v", requester, manager.FileName(), state.Serialize().EndedAt)
	metrics.LeaseDecisions.WithLabelValues(metrics.DecisionGranted).Inc()
	return Decision{
		Granted:   true,
		Requester: requester,
		Holder:    state.Holder,
		EndedAt:   state.EndedAt,
	}, nil
}

// Status returns the current lease without writing anything.
func (a *Application) Status(ctx context.Context, target Target) (*leasemanagement.LeaseState, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	manager, err := a.newManager(ctx, target)
	if err != nil {
		return nil, err
	}

	return manager.Get(ctx)
}

func (a *Application) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.Config == nil || a.Config.Storage.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.Config.Storage.RequestTimeout)
}

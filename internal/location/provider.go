package location

import (
	"context"
	"errors"
	"sync"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// Sample is one position fix with its instantaneous speed.
type Sample struct {
	Coordinate models.Coordinate `json:"coordinate"`
	SpeedMPH   float64           `json:"speed_mph"`
}

// Permissions reflects the platform location grants for this install.
type Permissions struct {
	Foreground bool
	Background bool
}

// Subscription is a cancellable stream of position samples. Samples are
// delivered in arrival order; the channel closes after Cancel.
type Subscription interface {
	Samples() <-chan Sample
	Cancel()
}

// Provider acquires positions, both one-shot and as a continuous background
// stream. It is the only suspension point of the trip core.
type Provider interface {
	// Current returns the most recent known position. It blocks at most for
	// the context deadline.
	Current(ctx context.Context) (Sample, error)

	// Subscribe starts continuous sampling. Each active subscription gets its
	// own channel; cancelling one does not affect others.
	Subscribe() (Subscription, error)

	// Permissions reports the location grants available to this provider.
	Permissions() Permissions
}

// subscription is the channel-backed Subscription shared by providers.
type subscription struct {
	ch     chan Sample
	once   sync.Once
	cancel func(*subscription)

	mu     sync.Mutex
	closed bool
}

func newSubscription(buffer int, cancel func(*subscription)) *subscription {
	return &subscription{ch: make(chan Sample, buffer), cancel: cancel}
}

func (s *subscription) Samples() <-chan Sample {
	return s.ch
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel(s)
		}
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.ch)
	})
}

// deliver pushes a sample without ever blocking the feed; when the consumer
// falls behind, the sample is skipped rather than stalling the source.
func (s *subscription) deliver(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- sample:
	default:
	}
}

// ErrNoFix is returned by Current when no position has been observed yet.
var ErrNoFix = errors.New("no position fix available")

// SimulatedProvider is an in-process provider fed by test or simulator code.
type SimulatedProvider struct {
	mu     sync.Mutex
	perms  Permissions
	last   *Sample
	subs   map[*subscription]struct{}
	closed bool
}

// NewSimulatedProvider creates a provider with the given permission grants.
func NewSimulatedProvider(perms Permissions) *SimulatedProvider {
	return &SimulatedProvider{
		perms: perms,
		subs:  make(map[*subscription]struct{}),
	}
}

// SetPermissions changes the simulated grants.
func (p *SimulatedProvider) SetPermissions(perms Permissions) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.perms = perms
}

// Emit feeds a sample to Current and to every active subscription.
func (p *SimulatedProvider) Emit(sample Sample) {
	p.mu.Lock()
	p.last = &sample
	subs := make([]*subscription, 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	for _, s := range subs {
		s.deliver(sample)
	}
}

// Current implements Provider.
func (p *SimulatedProvider) Current(ctx context.Context) (Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Sample{}, ErrNoFix
	}
	return *p.last, nil
}

// Subscribe implements Provider.
func (p *SimulatedProvider) Subscribe() (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := newSubscription(64, func(s *subscription) {
		p.mu.Lock()
		delete(p.subs, s)
		p.mu.Unlock()
	})
	p.subs[sub] = struct{}{}
	return sub, nil
}

// Permissions implements Provider.
func (p *SimulatedProvider) Permissions() Permissions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perms
}

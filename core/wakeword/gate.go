package wakeword

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrNoKeyword = errors.New("no wake word keyword assigned")
	ErrDestroyed = errors.New("wake word gate destroyed")
)

// Detector is the acoustic engine. Listen blocks until ctx is cancelled,
// calling onDetected whenever the profile's keyword is heard.
type Detector interface {
	Listen(ctx context.Context, profile Profile, onDetected func()) error
}

// Gate turns a detector into a one-shot trigger: once armed it fires a
// single time and then stops listening until armed again. The enabled
// switch pauses listening without forgetting the arm.
type Gate struct {
	detector Detector
	profiles ProfileStore

	mu        sync.Mutex
	profile   *Profile
	enabled   bool
	destroyed bool
	armed     *arm
}

type arm struct {
	onTrigger func()
	// run is the detector run serving the arm, nil while the gate is paused.
	run *run
}

type run struct {
	stop context.CancelFunc
}

func (a *arm) stopRun() {
	if a.run != nil {
		a.run.stop()
		a.run = nil
	}
}

func NewGate(detector Detector, profiles ProfileStore) *Gate {
	return &Gate{detector: detector, profiles: profiles, enabled: true}
}

// SetKeyword loads the trained profile for keyword. It reports false and
// keeps the previous keyword when there is none. A live arm switches to the
// new keyword.
func (g *Gate) SetKeyword(keyword string) bool {
	profile, err := g.profiles.Load(keyword)
	if err != nil {
		logger.Info("wake word keyword not available", "keyword", keyword, "error", err)
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.profile = &profile
	if g.armed != nil && g.armed.run != nil {
		g.armed.stopRun()
		g.listenLocked(g.armed)
	}
	return true
}

// Keyword returns the keyword currently listened for.
func (g *Gate) Keyword() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.profile == nil {
		return ""
	}
	return g.profile.Keyword
}

// Arm starts listening and calls onTrigger the first time the keyword is
// heard. keyword replaces the current one when it differs, an empty keyword
// keeps it. Arming an armed gate replaces the previous trigger.
func (g *Gate) Arm(keyword string, onTrigger func()) error {
	var loaded *Profile
	if keyword != "" && keyword != g.Keyword() {
		profile, err := g.profiles.Load(keyword)
		if err != nil {
			return err
		}
		loaded = &profile
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.destroyed {
		return ErrDestroyed
	}
	if loaded != nil {
		g.profile = loaded
	}
	if g.profile == nil {
		return ErrNoKeyword
	}

	g.disarmLocked()
	g.armed = &arm{onTrigger: onTrigger}
	if g.enabled {
		g.listenLocked(g.armed)
	}
	return nil
}

func (g *Gate) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disarmLocked()
}

// SetEnabled pauses or resumes listening, an arm survives a pause.
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.enabled == enabled {
		return
	}
	g.enabled = enabled
	if g.armed == nil {
		return
	}
	if enabled {
		g.listenLocked(g.armed)
	} else {
		g.armed.stopRun()
	}
}

// IsListening reports whether the detector is running.
func (g *Gate) IsListening() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed != nil && g.armed.run != nil
}

// Destroy disarms the gate for good and releases the detector.
func (g *Gate) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyed {
		return
	}
	g.disarmLocked()
	g.destroyed = true
	if closer, ok := g.detector.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to release wake word detector", "error", err)
		}
	}
}

func (g *Gate) disarmLocked() {
	if g.armed == nil {
		return
	}
	g.armed.stopRun()
	g.armed = nil
}

func (g *Gate) listenLocked(a *arm) {
	ctx, stop := context.WithCancel(context.Background())
	r := &run{stop: stop}
	a.run = r
	// The detector gets its own profile, a later SetKeyword or a detector
	// holding on to the phrases must not share them.
	var profile Profile
	if err := copier.CopyWithOption(&profile, g.profile, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to copy wake word profile", "keyword", g.profile.Keyword, "error", err)
		profile = Profile{
			Keyword:     g.profile.Keyword,
			Phrases:     slices.Clone(g.profile.Phrases),
			Sensitivity: g.profile.Sensitivity,
		}
	}

	go func() {
		ctx, span := tracer.Start(ctx, "listen for wake word")
		defer span.End()
		span.SetAttributes(attribute.String("wakeword.keyword", profile.Keyword))

		err := g.detector.Listen(ctx, profile, func() { g.fire(a, r) })
		if err != nil && ctx.Err() == nil {
			span.RecordError(err)
			logger.WarnContext(ctx, "wake word detector stopped", "keyword", profile.Keyword, "error", err)
		}
	}()
}

// fire calls the trigger of a if r is still the run serving the live arm.
func (g *Gate) fire(a *arm, r *run) {
	g.mu.Lock()
	if g.armed != a || a.run != r {
		g.mu.Unlock()
		return
	}
	a.stopRun()
	g.armed = nil
	g.mu.Unlock()

	logger.Debug("wake word detected")
	if a.onTrigger != nil {
		a.onTrigger()
	}
}

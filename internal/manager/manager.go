package manager

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vane-rt/vane/internal/actorcore"
	"github.com/vane-rt/vane/internal/errors"
	"github.com/vane-rt/vane/internal/rtlog"
)

// ConfigChanged is delivered to the Manager's own actor by a config
// watcher on every hot-reload (spec §3.3 of SPEC_FULL.md).
const ConfigChanged actorcore.Identity = actorcore.ApplicationBase + 1

// runnable is the subset of actorcore.Actor/actorcore.Group the Manager
// needs to drive a worker loop and sample queue depth, independent of
// whether the managed unit is a lone actor or a group.
type runnable interface {
	actorcore.Ref
	Run()
	MailboxLength() int
}

type entry struct {
	ref       actorcore.Ref
	runner    runnable
	placement Placement
	members   []*actorcore.Actor

	mu       sync.Mutex
	threadID int64
}

func (e *entry) setThreadID(id int64) {
	e.mu.Lock()
	e.threadID = id
	e.mu.Unlock()
}

func (e *entry) getThreadID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threadID
}

type flatEntry struct {
	actor *actorcore.Actor
	owner *entry
}

// ActorSnapshot is a point-in-time sample of one actor's scheduling state,
// taken without holding any actor's mailbox lock except the sampled queue
// length read (spec §4.4, "Introspection operations").
type ActorSnapshot struct {
	Name         string
	QueueLength  int
	ThreadID     int64
	MessageCount uint64
}

// Manager registers actors and groups, sequences their start-up, applies
// per-thread CPU affinity and scheduling class, and coordinates orderly
// shutdown without ever terminating the process itself (spec §4.4;
// REDESIGN FLAGS: no exit(0)).
type Manager struct {
	mu      sync.Mutex
	log     rtlog.Logger
	started bool

	order []*entry
	byName map[string]*entry
	flat   map[string]*flatEntry

	self *actorcore.Actor

	eg    *errgroup.Group
	egCtx context.Context
}

// New creates an unstarted Manager. The Manager is itself reachable as an
// ordinary actor under the name "manager", primarily so a config watcher
// can deliver ConfigChanged to it.
func New(log rtlog.Logger) *Manager {
	if log == nil {
		log = rtlog.Discard
	}
	mgr := &Manager{
		log:    log,
		byName: make(map[string]*entry),
		flat:   make(map[string]*flatEntry),
		self:   actorcore.NewActor("manager", actorcore.WithLogger(log)),
	}
	mgr.self.On(ConfigChanged, mgr.handleConfigChanged)
	return mgr
}

// SelfRef exposes the Manager's own actor identity for tests and for
// wiring a config.Watcher's target.
func (mgr *Manager) SelfRef() actorcore.Ref { return mgr.self }

func (mgr *Manager) handleConfigChanged(m *actorcore.Message) {
	cfg, ok := m.Payload.(PlacementUpdate)
	if !ok {
		return
	}
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	for name, placement := range cfg.ByName {
		if e, ok := mgr.byName[name]; ok && e.getThreadID() == 0 {
			e.placement = placement
			mgr.log.Info("manager: re-applied placement to not-yet-started actor %s", name)
		}
	}
}

// PlacementUpdate is the payload a config.Watcher delivers to the
// Manager's ConfigChanged handler: new placements keyed by top-level
// managed name, applied only to actors that have not yet been started.
type PlacementUpdate struct {
	ByName map[string]Placement
}

// Manage registers ref (an *actorcore.Actor or *actorcore.Group) under its
// own name, with the given thread placement. It is a contract violation to
// manage a duplicate name, a group with no members, or an affinity set
// containing a negative core id, and to call Manage after Init.
func (mgr *Manager) Manage(ref actorcore.Ref, placement Placement) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.started {
		panic(errors.NewStandardError(errors.CategoryContract, "MANAGE_AFTER_INIT",
			fmt.Sprintf("manage(%s) called after init()", ref.Name()), nil))
	}

	name := ref.Name()
	if _, exists := mgr.byName[name]; exists {
		panic(errors.DuplicateManage(name))
	}
	for _, c := range placement.Affinity {
		if c < 0 {
			panic(errors.InvalidAffinityCore(c))
		}
	}

	runner, ok := ref.(runnable)
	if !ok {
		panic(errors.NilActor("manage"))
	}

	var members []*actorcore.Actor
	switch v := ref.(type) {
	case *actorcore.Actor:
		members = []*actorcore.Actor{v}
	case *actorcore.Group:
		members = v.Members()
		if len(members) == 0 {
			panic(errors.EmptyGroupManage(name))
		}
	default:
		panic(errors.NilActor("manage"))
	}

	for _, member := range members {
		if _, dup := mgr.flat[member.Name()]; dup {
			panic(errors.DuplicateManage(member.Name()))
		}
	}

	e := &entry{ref: ref, runner: runner, placement: placement, members: members}
	mgr.order = append(mgr.order, e)
	mgr.byName[name] = e
	for _, member := range members {
		mgr.flat[member.Name()] = &flatEntry{actor: member, owner: e}
	}
}

// Init delivers Start to every managed actor and group via fast_send, in
// insertion order, then spawns one worker goroutine per managed entry
// (applying its thread placement first), and finally self-signals Start to
// the Manager's own actor (spec §4.4).
func (mgr *Manager) Init(ctx context.Context) {
	mgr.mu.Lock()
	if mgr.started {
		mgr.mu.Unlock()
		return
	}
	mgr.started = true
	order := append([]*entry(nil), mgr.order...)
	mgr.mu.Unlock()

	for _, e := range order {
		actorcore.DispatchFast(e.ref, actorcore.NewMessage(actorcore.Start, nil))
	}

	eg, egCtx := errgroup.WithContext(ctx)
	mgr.eg = eg
	mgr.egCtx = egCtx

	for _, e := range order {
		ent := e
		eg.Go(func() error { return mgr.runWorker(ent) })
	}
	eg.Go(func() error { return mgr.runSelfWorker() })

	actorcore.DispatchFast(mgr.self, actorcore.NewMessage(actorcore.Start, nil))
}

func (mgr *Manager) runWorker(e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actor %s worker panicked: %v", e.ref.Name(), r)
			mgr.log.Error("actor %s worker panicked: %v", e.ref.Name(), r)
		}
	}()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	e.setThreadID(currentThreadID())
	applyPlacement(mgr.log, e.ref.Name(), e.placement)
	e.runner.Run()
	return nil
}

func (mgr *Manager) runSelfWorker() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("manager actor panicked: %v", r)
			mgr.log.Error("manager actor panicked: %v", r)
		}
	}()
	mgr.self.Run()
	return nil
}

// Shutdown delivers a terminal Shutdown to every managed actor and group,
// in insertion order, then to the Manager's own actor, and waits for every
// worker goroutine to return. A Group fast_sends Shutdown into all its
// members on the Manager's behalf, running each member's end hook and
// marking it terminated as it goes (spec §4.3); a standalone actor
// terminates itself, which lets its own Run loop reach the same end hook
// and terminated bookkeeping once it drains its mailbox down to the
// Shutdown it was just sent (spec §4.4). Per the redesign away from the
// original's exit(0), control always returns to the caller.
func (mgr *Manager) Shutdown() error {
	mgr.mu.Lock()
	order := append([]*entry(nil), mgr.order...)
	mgr.mu.Unlock()

	for _, e := range order {
		switch v := e.ref.(type) {
		case *actorcore.Group:
			actorcore.DispatchFast(v, actorcore.NewMessage(actorcore.Shutdown, nil))
		case *actorcore.Actor:
			v.Terminate()
		}
	}
	mgr.self.Terminate()

	return mgr.End()
}

// End joins every worker goroutine spawned by Init, returning the first
// panic-derived error encountered, if any.
func (mgr *Manager) End() error {
	mgr.mu.Lock()
	eg := mgr.eg
	mgr.mu.Unlock()
	if eg == nil {
		return nil
	}
	return eg.Wait()
}

// Snapshot returns a point-in-time view of every flattened (group
// expanded) managed actor.
func (mgr *Manager) Snapshot() []ActorSnapshot {
	mgr.mu.Lock()
	flat := make([]*flatEntry, 0, len(mgr.flat))
	for _, fe := range mgr.flat {
		flat = append(flat, fe)
	}
	mgr.mu.Unlock()

	out := make([]ActorSnapshot, 0, len(flat))
	for _, fe := range flat {
		out = append(out, ActorSnapshot{
			Name:         fe.actor.Name(),
			QueueLength:  fe.owner.runner.MailboxLength(),
			ThreadID:     fe.owner.getThreadID(),
			MessageCount: fe.actor.MessageCount(),
		})
	}
	return out
}

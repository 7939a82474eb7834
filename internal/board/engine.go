package board

import (
	"context"
	"io"
	"sync"

	"leadboard/internal/model"
	"leadboard/internal/notify"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Fetcher  Fetcher
	Mover    Mover
	Notifier notify.Sink
	// Journal is optional.
	Journal  Journal
	PageSize int
	Logger   logrus.FieldLogger
}

// Engine is the board reconciliation engine for one workspace. It owns the board store, the
// board registry, the drag session and the speculative snapshot. Safe for concurrent use.
type Engine struct {
	store    *Store
	registry *Registry
	policy   *Policy
	coord    *Coordinator
	log      logrus.FieldLogger

	mu       sync.Mutex
	tracker  tracker
	snapshot *model.Workspace
}

func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	sink := cfg.Notifier
	if sink == nil {
		sink = notify.Discard
	}
	store := NewStore(cfg.Fetcher, cfg.PageSize, log)
	registry := NewRegistry()
	policy := &Policy{store: store, registry: registry, log: log}
	return &Engine{
		store:    store,
		registry: registry,
		policy:   policy,
		coord:    newCoordinator(store, cfg.Mover, policy, sink, cfg.Journal, log),
		log:      log,
	}
}

func (e *Engine) Store() *Store       { return e.store }
func (e *Engine) Registry() *Registry { return e.registry }

// Load installs the workspace's boards, registers them and fetches page 1 of each
// concurrently. Per-board failures are recorded on the board and the first one is returned.
func (e *Engine) Load(ctx context.Context, ws model.Workspace) error {
	e.mu.Lock()
	e.tracker.clear()
	e.snapshot = nil
	e.mu.Unlock()

	cols := e.store.Reset(ws)
	e.registry.Reset()
	for _, c := range cols {
		e.registry.Register(c.ID(), c)
	}

	var g errgroup.Group
	for _, c := range cols {
		c := c
		g.Go(func() error {
			if err := c.load(ctx); err != nil {
				e.log.WithError(err).WithField("board", c.ID()).Warn("load board")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// StartDrag begins a gesture for leadID, looked up in authoritative state. It returns false
// (and leaves no session) when the lead is not found.
func (e *Engine) StartDrag(leadID string) bool {
	lead, boardID, ok := e.store.FindLead(leadID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.clear()
	e.snapshot = nil
	if !ok {
		e.log.WithField("lead", leadID).Debug("drag start: lead not found")
		return false
	}
	e.tracker.begin(lead, boardID)
	return true
}

// HoverOver updates the speculative preview for the active lead hovering targetID (a board or a
// lead). It returns true when the preview changed. Unresolvable ids leave state unchanged.
func (e *Engine) HoverOver(activeID, targetID string) bool {
	auth := e.store.Workspace()

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tracker.current(activeID); !ok {
		return false
	}
	view := overlay(auth, e.snapshot)
	if _, ok := boardOfLead(view, activeID); !ok {
		e.log.WithField("lead", activeID).Debug("drag over: active lead not found")
		return false
	}
	tgt, ok := resolveTarget(view, targetID)
	if !ok {
		e.log.WithField("target", targetID).Debug("drag over: target not found")
		return false
	}
	e.tracker.hover(targetID, tgt.overBoard)

	next, changed := Speculate(view, activeID, tgt.boardID)
	if !changed {
		return false
	}
	e.snapshot = &next
	return true
}

// ReleaseDrag ends the gesture and returns the move to commit. The session and snapshot are
// cleared whatever the result. ok=false means the drop resolved to nothing.
func (e *Engine) ReleaseDrag(activeID, targetID string) (Move, bool) {
	auth := e.store.Workspace()

	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.tracker.current(activeID)
	view := overlay(auth, e.snapshot)
	e.tracker.clear()
	e.snapshot = nil
	if !ok {
		return Move{}, false
	}

	tgt, ok := resolveTarget(view, targetID)
	if !ok {
		e.log.WithField("target", targetID).Debug("drag end: target not found")
		return Move{}, false
	}
	m := Move{
		LeadID:        sess.ActiveLeadID,
		OriginBoardID: sess.OriginBoardID,
		DestBoardID:   tgt.boardID,
	}
	if !tgt.overBoard {
		if dest, ok := auth.FindBoard(tgt.boardID); ok {
			if idx := model.IndexOfLead(dest.Leads, tgt.leadID); idx >= 0 {
				m.Hint = &idx
			}
		}
	}
	return m, true
}

// CancelDrag ends a gesture without committing (dropped on nothing).
func (e *Engine) CancelDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.clear()
	e.snapshot = nil
}

// Commit issues the move for a released gesture. See Coordinator.Commit.
func (e *Engine) Commit(ctx context.Context, m Move) Outcome {
	return e.coord.Commit(ctx, m)
}

// EndDrag is ReleaseDrag followed by Commit.
func (e *Engine) EndDrag(ctx context.Context, activeID, targetID string) Outcome {
	m, ok := e.ReleaseDrag(activeID, targetID)
	if !ok {
		return Outcome{Kind: OutcomeNoop}
	}
	return e.Commit(ctx, m)
}

// Session returns a copy of the active drag session.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tracker.session == nil {
		return Session{}, false
	}
	return *e.tracker.session, true
}

// HasSnapshot reports whether a speculative snapshot exists.
func (e *Engine) HasSnapshot() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot != nil
}

// MoveInFlight reports whether a commit for leadID is still running, from the move call
// until the confirmed result has been applied locally.
func (e *Engine) MoveInFlight(leadID string) bool {
	return e.coord.InFlight(leadID)
}

// BoardStatus is the per-board loading state shown next to a column.
type BoardStatus struct {
	Pending bool
	HasMore bool
	Total   int
	Err     error
}

// View is what the UI renders each frame.
type View struct {
	Workspace   model.Workspace
	Status      map[string]BoardStatus
	Session     *Session
	Speculative bool
}

// Renderable returns authoritative state overlaid with the speculative snapshot, if any.
func (e *Engine) Renderable() View {
	auth := e.store.Workspace()
	status := make(map[string]BoardStatus, len(auth.Boards))
	for _, b := range auth.Boards {
		c, ok := e.store.Column(b.ID)
		if !ok {
			continue
		}
		status[b.ID] = BoardStatus{Pending: c.Pending(), HasMore: c.HasMore(), Total: c.Total(), Err: c.Err()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		Workspace:   overlay(auth, e.snapshot),
		Status:      status,
		Speculative: e.snapshot != nil,
	}
	if e.tracker.session != nil {
		s := *e.tracker.session
		v.Session = &s
	}
	return v
}

// LoadMore fetches the next page of a board.
func (e *Engine) LoadMore(ctx context.Context, boardID string) error {
	c, ok := e.store.Column(boardID)
	if !ok {
		return &StaleReferenceError{Kind: "board", ID: boardID}
	}
	return c.LoadMore(ctx)
}

// Refresh invalidates exactly the named boards (e.g. after a lead CRUD call).
func (e *Engine) Refresh(ctx context.Context, boardIDs ...string) error {
	return e.policy.Invalidate(ctx, boardIDs...)
}

// RefreshAll invalidates every registered board, each by its own id.
func (e *Engine) RefreshAll(ctx context.Context) error {
	return e.policy.Invalidate(ctx, e.registry.IDs()...)
}

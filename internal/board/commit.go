package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"leadboard/internal/api"
	"leadboard/internal/model"
	"leadboard/internal/notify"

	"github.com/sirupsen/logrus"
)

// Mover issues the single authoritative move call.
type Mover interface {
	MoveLead(ctx context.Context, req model.MoveLeadRequest) error
}

// Journal records every issued move call and its result.
type Journal interface {
	RecordMove(ctx context.Context, rec model.MoveRecord) error
}

// Move is a completed gesture as seen by the commit coordinator.
type Move struct {
	LeadID        string
	OriginBoardID string
	DestBoardID   string
	// Hint is the drop position in the destination, when the lead was dropped onto another lead.
	Hint *int
}

type OutcomeKind string

const (
	// OutcomeNoop: no net change; nothing was sent.
	OutcomeNoop OutcomeKind = "noop"
	// OutcomeStale: an id no longer resolves in authoritative state; nothing was sent.
	OutcomeStale OutcomeKind = "stale"
	// OutcomeBusy: a move for the same lead is still outstanding; nothing was sent.
	OutcomeBusy      OutcomeKind = "busy"
	OutcomeCommitted OutcomeKind = "committed"
	OutcomeRejected  OutcomeKind = "rejected"
)

type Outcome struct {
	Kind OutcomeKind
	// Request is the move call that was issued (committed or rejected outcomes only).
	Request model.MoveLeadRequest
	Err     error
}

// Issued reports whether an external move call was made.
func (o Outcome) Issued() bool {
	return o.Kind == OutcomeCommitted || o.Kind == OutcomeRejected
}

// Coordinator turns a finished gesture into at most one move call.
type Coordinator struct {
	store   *Store
	mover   Mover
	policy  *Policy
	notify  notify.Sink
	journal Journal
	log     logrus.FieldLogger
	now     func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func newCoordinator(store *Store, mover Mover, policy *Policy, sink notify.Sink, journal Journal, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		store:    store,
		mover:    mover,
		policy:   policy,
		notify:   sink,
		journal:  journal,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		inFlight: map[string]bool{},
	}
}

// Commit resolves m against authoritative state and issues the move call when the gesture
// changed the lead's board or position. Failures are reported through the notification sink and
// the returned Outcome; nothing propagates further.
func (c *Coordinator) Commit(ctx context.Context, m Move) Outcome {
	leadID := strings.TrimSpace(m.LeadID)
	log := c.log.WithFields(logrus.Fields{"lead": leadID, "from": m.OriginBoardID, "to": m.DestBoardID})

	if !c.acquire(leadID) {
		log.Debug("move already in flight; ignoring commit")
		return Outcome{Kind: OutcomeBusy, Err: ErrConcurrentMove}
	}
	// Held until the confirmed move is applied locally and the affected boards are refetched.
	defer c.release(leadID)

	plan, ok, err := c.store.planMove(m)
	if err != nil {
		log.WithError(err).Debug("abort move")
		return Outcome{Kind: OutcomeStale, Err: err}
	}
	if !ok {
		return Outcome{Kind: OutcomeNoop}
	}

	req := plan.req
	log = log.WithFields(logrus.Fields{"sortOrder": req.SortOrder, "oldSortOrder": req.OldSortOrder})
	log.Debug("commit move")
	callErr := c.mover.MoveLead(ctx, req)

	c.record(ctx, plan, callErr)

	if callErr != nil {
		reason := failureReason(callErr)
		log.WithError(callErr).Warn("move rejected")
		c.notify.Error(reason)
		return Outcome{Kind: OutcomeRejected, Request: req, Err: &MoveRejectedError{LeadID: leadID, Reason: reason, Err: callErr}}
	}

	c.notify.Success(c.successMessage(plan))
	if err := c.policy.Confirm(ctx, plan); err != nil {
		log.WithError(err).Warn("refetch after move")
	}
	return Outcome{Kind: OutcomeCommitted, Request: req}
}

func (c *Coordinator) acquire(leadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[leadID] {
		return false
	}
	c.inFlight[leadID] = true
	return true
}

func (c *Coordinator) release(leadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, leadID)
}

// InFlight reports whether a commit for leadID is still running.
func (c *Coordinator) InFlight(leadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[leadID]
}

func (c *Coordinator) record(ctx context.Context, plan movePlan, callErr error) {
	if c.journal == nil {
		return
	}
	rec := model.MoveRecord{
		LeadID:       plan.req.LeadID,
		FromBoardID:  plan.originBoardID,
		ToBoardID:    plan.req.BoardID,
		SortOrder:    plan.req.SortOrder,
		OldSortOrder: plan.req.OldSortOrder,
		OK:           callErr == nil,
		At:           c.now(),
	}
	if callErr != nil {
		rec.Error = failureReason(callErr)
	}
	if err := c.journal.RecordMove(ctx, rec); err != nil {
		c.log.WithError(err).Warn("record move in journal")
	}
}

func (c *Coordinator) successMessage(plan movePlan) string {
	name := strings.TrimSpace(plan.lead.Name)
	if name == "" {
		name = "Lead"
	}
	if plan.sameBoard {
		return fmt.Sprintf("%s reordered", name)
	}
	if col, ok := c.store.Column(plan.req.BoardID); ok && strings.TrimSpace(col.Name()) != "" {
		return fmt.Sprintf("%s moved to %s", name, col.Name())
	}
	return fmt.Sprintf("%s moved", name)
}

// failureReason prefers the server-provided message.
func failureReason(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

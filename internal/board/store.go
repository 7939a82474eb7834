package board

import (
	"context"
	"io"
	"sync"

	"leadboard/internal/model"

	"github.com/sirupsen/logrus"
)

const DefaultPageSize = 10

// Fetcher is the read side of the external lead API.
type Fetcher interface {
	FetchLeadsPage(ctx context.Context, boardID string, page, size int) (model.LeadPage, error)
}

// Invalidator is implemented by fetchers that cache lead pages. Implementations must evict
// only the named board's pages.
type Invalidator interface {
	InvalidateBoard(ctx context.Context, boardID string) error
}

// Store holds the authoritative boards of one workspace, in column order.
type Store struct {
	mu       sync.Mutex
	wsID     string
	wsName   string
	columns  []*Column
	byID     map[string]*Column
	fetcher  Fetcher
	pageSize int
	log      logrus.FieldLogger
}

// Column is the per-board slice of the store. It implements BoardSource.
type Column struct {
	store *Store
	id    string
	name  string
	leads []model.Lead

	pages        int // pages loaded so far
	allPages     int
	allElements  int
	pending      bool
	fetchingMore bool
	// gen changes on every (re)fetch; results from an older generation are dropped.
	gen uint64
	err error
}

func NewStore(f Fetcher, pageSize int, log logrus.FieldLogger) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Store{fetcher: f, pageSize: pageSize, log: log, byID: map[string]*Column{}}
}

// Reset replaces the board set. Leads embedded in ws are ignored; boards are filled by fetching.
func (s *Store) Reset(ws model.Workspace) []*Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wsID = ws.ID
	s.wsName = ws.Name
	s.columns = make([]*Column, 0, len(ws.Boards))
	s.byID = make(map[string]*Column, len(ws.Boards))
	for _, b := range ws.Boards {
		if _, dup := s.byID[b.ID]; dup || b.ID == "" {
			continue
		}
		c := &Column{store: s, id: b.ID, name: b.Name}
		s.columns = append(s.columns, c)
		s.byID[b.ID] = c
	}
	return append([]*Column(nil), s.columns...)
}

func (s *Store) Column(id string) (*Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	return c, ok
}

// Workspace returns a copy of the authoritative state.
func (s *Store) Workspace() model.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceLocked()
}

func (s *Store) workspaceLocked() model.Workspace {
	ws := model.Workspace{ID: s.wsID, Name: s.wsName, Boards: make([]model.Board, 0, len(s.columns))}
	for _, c := range s.columns {
		ws.Boards = append(ws.Boards, model.Board{ID: c.id, Name: c.name, Leads: cloneLeads(c.leads)})
	}
	return ws
}

// FindLead locates a lead in authoritative state.
func (s *Store) FindLead(leadID string) (model.Lead, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.columns {
		if i := model.IndexOfLead(c.leads, leadID); i >= 0 {
			return c.leads[i], c.id, true
		}
	}
	return model.Lead{}, "", false
}

// movePlan is a resolved move against authoritative state.
type movePlan struct {
	req           model.MoveLeadRequest
	originBoardID string
	lead          model.Lead
	sameBoard     bool
}

func (p movePlan) affected() []string {
	if p.sameBoard {
		return []string{p.originBoardID}
	}
	return []string{p.originBoardID, p.req.BoardID}
}

// planMove resolves m against authoritative state. ok=false means there is nothing to commit.
// A same-board reorder is applied to the store before returning.
func (s *Store) planMove(m Move) (movePlan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	origin, ok := s.byID[m.OriginBoardID]
	if !ok {
		return movePlan{}, false, &StaleReferenceError{Kind: "board", ID: m.OriginBoardID}
	}
	dest, ok := s.byID[m.DestBoardID]
	if !ok {
		return movePlan{}, false, &StaleReferenceError{Kind: "board", ID: m.DestBoardID}
	}
	oldIdx := model.IndexOfLead(origin.leads, m.LeadID)
	if oldIdx < 0 {
		return movePlan{}, false, &StaleReferenceError{Kind: "lead", ID: m.LeadID, BoardID: origin.id}
	}

	plan := movePlan{
		originBoardID: origin.id,
		lead:          origin.leads[oldIdx],
		sameBoard:     origin == dest,
	}

	newIdx := len(dest.leads)
	if m.Hint != nil && *m.Hint >= 0 && *m.Hint <= len(dest.leads) {
		newIdx = *m.Hint
	}
	if plan.sameBoard {
		// The lead is removed before it is reinserted, so the last valid slot is len-1.
		if newIdx > len(dest.leads)-1 {
			newIdx = len(dest.leads) - 1
		}
		if newIdx == oldIdx {
			return movePlan{}, false, nil
		}
	}

	plan.req = model.MoveLeadRequest{
		LeadID:       m.LeadID,
		BoardID:      dest.id,
		SortOrder:    newIdx,
		OldSortOrder: oldIdx,
	}
	if plan.sameBoard {
		s.applyMoveLocked(plan.req.LeadID, dest.id, newIdx)
	}
	return plan, true, nil
}

// applyConfirmed applies a server-confirmed cross-board move locally.
func (s *Store) applyConfirmed(p movePlan) {
	if p.sameBoard {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.applyMoveLocked(p.req.LeadID, p.req.BoardID, p.req.SortOrder) {
		s.log.WithField("lead", p.req.LeadID).Debug("confirmed move no longer applies locally; waiting for refetch")
	}
}

// applyMoveLocked removes leadID from whichever board holds it and inserts it into destID at index.
func (s *Store) applyMoveLocked(leadID, destID string, index int) bool {
	dest, ok := s.byID[destID]
	if !ok {
		return false
	}
	var lead model.Lead
	found := false
	for _, c := range s.columns {
		i := model.IndexOfLead(c.leads, leadID)
		if i < 0 {
			continue
		}
		lead = c.leads[i]
		next := make([]model.Lead, 0, len(c.leads)-1)
		next = append(next, c.leads[:i]...)
		next = append(next, c.leads[i+1:]...)
		model.Renumber(c.id, next)
		c.leads = next
		found = true
		break
	}
	if !found {
		return false
	}
	if index < 0 {
		index = 0
	}
	if index > len(dest.leads) {
		index = len(dest.leads)
	}
	next := make([]model.Lead, 0, len(dest.leads)+1)
	next = append(next, dest.leads[:index]...)
	next = append(next, lead)
	next = append(next, dest.leads[index:]...)
	model.Renumber(dest.id, next)
	dest.leads = next
	return true
}

// replaceLocked installs leads (already in presentation order) as c's collection. The fetched board is canonical for the ids it
// returns, so stale copies in other boards are dropped.
func (s *Store) replaceLocked(c *Column, leads []model.Lead) {
	seen := make(map[string]bool, len(leads))
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if l.ID == "" || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	model.Renumber(c.id, out)
	c.leads = out

	for _, other := range s.columns {
		if other == c {
			continue
		}
		kept := make([]model.Lead, 0, len(other.leads))
		dropped := 0
		for _, l := range other.leads {
			if seen[l.ID] {
				dropped++
				continue
			}
			kept = append(kept, l)
		}
		if dropped == 0 {
			continue
		}
		model.Renumber(other.id, kept)
		other.leads = kept
		s.log.WithFields(logrus.Fields{"board": other.id, "owner": c.id, "dropped": dropped}).Debug("dropped leads now owned by another board")
	}
}

func (c *Column) ID() string   { return c.id }
func (c *Column) Name() string { return c.name }

func (c *Column) Leads() []model.Lead {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return cloneLeads(c.leads)
}

// Pending reports whether a (re)fetch of this board is in flight.
func (c *Column) Pending() bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.pending
}

func (c *Column) HasMore() bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.pages < c.allPages
}

// Total is the server-reported element count for the board.
func (c *Column) Total() int {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.allElements
}

// Err is the last fetch error, cleared by the next successful fetch.
func (c *Column) Err() error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.err
}

// Refetch evicts the board's cached pages and reloads it from page 1 through the number of
// pages previously loaded.
func (c *Column) Refetch(ctx context.Context) error {
	return c.fetch(ctx, true)
}

func (c *Column) load(ctx context.Context) error {
	return c.fetch(ctx, false)
}

func (c *Column) fetch(ctx context.Context, evict bool) error {
	s := c.store
	s.mu.Lock()
	c.gen++
	gen := c.gen
	pages := c.pages
	if pages < 1 {
		pages = 1
	}
	c.pending = true
	c.fetchingMore = false
	s.mu.Unlock()

	if evict {
		if inv, ok := s.fetcher.(Invalidator); ok {
			if err := inv.InvalidateBoard(ctx, c.id); err != nil {
				s.log.WithError(err).WithField("board", c.id).Warn("evict cached lead pages")
			}
		}
	}

	var (
		leads  []model.Lead
		last   model.LeadPage
		loaded int
	)
	for p := 1; p <= pages; p++ {
		page, err := s.fetcher.FetchLeadsPage(ctx, c.id, p, s.pageSize)
		if err != nil {
			s.mu.Lock()
			if c.gen == gen {
				c.pending = false
				c.err = err
			}
			s.mu.Unlock()
			return err
		}
		leads = append(leads, pageOrder(page.Data)...)
		last = page
		loaded = p
		if p >= page.AllPages {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.pending = false
	c.err = nil
	c.pages = loaded
	c.allPages = last.AllPages
	c.allElements = last.AllElements
	s.replaceLocked(c, leads)
	return nil
}

// LoadMore fetches the next page when one exists and no fetch is in flight.
func (c *Column) LoadMore(ctx context.Context) error {
	s := c.store
	s.mu.Lock()
	if c.pending || c.fetchingMore || c.pages >= c.allPages {
		s.mu.Unlock()
		return nil
	}
	c.fetchingMore = true
	gen := c.gen
	next := c.pages + 1
	s.mu.Unlock()

	page, err := s.fetcher.FetchLeadsPage(ctx, c.id, next, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.fetchingMore = false
	if err != nil {
		c.err = err
		return err
	}
	merged := append(cloneLeads(c.leads), pageOrder(page.Data)...)
	c.pages = next
	c.allPages = page.AllPages
	c.allElements = page.AllElements
	c.err = nil
	s.replaceLocked(c, merged)
	return nil
}

func cloneLeads(in []model.Lead) []model.Lead {
	if in == nil {
		return []model.Lead{}
	}
	return append([]model.Lead(nil), in...)
}

// pageOrder returns one fetched page sorted for presentation. Pages are concatenated in page order.
func pageOrder(data []model.Lead) []model.Lead {
	out := cloneLeads(data)
	model.SortLeads(out)
	return out
}

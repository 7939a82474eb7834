package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"leadboard/internal/model"
)

// fakeAPI is an in-memory CRM backend: it serves lead pages and applies moves the way the server does.
type fakeAPI struct {
	mu      sync.Mutex
	boards  map[string][]model.Lead
	fetches map[string]int
	evicted map[string]int
	moves   []model.MoveLeadRequest

	moveErr error
	// When block is set, MoveLead signals entered and waits for block to close.
	block   chan struct{}
	entered chan struct{}
}

func newFakeAPI(boards map[string][]string) *fakeAPI {
	f := &fakeAPI{
		boards:  map[string][]model.Lead{},
		fetches: map[string]int{},
		evicted: map[string]int{},
	}
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	for boardID, ids := range boards {
		leads := make([]model.Lead, 0, len(ids))
		for i, id := range ids {
			n++
			leads = append(leads, model.Lead{
				ID:        id,
				Name:      "Lead " + id,
				BoardID:   boardID,
				SortOrder: i,
				CreatedAt: base.Add(time.Duration(n) * time.Minute),
			})
		}
		f.boards[boardID] = leads
	}
	return f
}

func (f *fakeAPI) FetchLeadsPage(ctx context.Context, boardID string, page, size int) (model.LeadPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[boardID]++
	leads, ok := f.boards[boardID]
	if !ok {
		return model.LeadPage{}, fmt.Errorf("board %s not found", boardID)
	}
	allPages := (len(leads) + size - 1) / size
	start := (page - 1) * size
	if start > len(leads) {
		start = len(leads)
	}
	end := start + size
	if end > len(leads) {
		end = len(leads)
	}
	return model.LeadPage{
		Data:        append([]model.Lead(nil), leads[start:end]...),
		Success:     true,
		AllElements: len(leads),
		AllPages:    allPages,
	}, nil
}

func (f *fakeAPI) MoveLead(ctx context.Context, req model.MoveLeadRequest) error {
	f.mu.Lock()
	f.moves = append(f.moves, req)
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	var lead model.Lead
	found := false
	for id, leads := range f.boards {
		if i := model.IndexOfLead(leads, req.LeadID); i >= 0 {
			lead = leads[i]
			rest := append(append([]model.Lead(nil), leads[:i]...), leads[i+1:]...)
			model.Renumber(id, rest)
			f.boards[id] = rest
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("lead %s not found", req.LeadID)
	}
	dest := f.boards[req.BoardID]
	at := req.SortOrder
	if at > len(dest) {
		at = len(dest)
	}
	next := append(append(append([]model.Lead(nil), dest[:at]...), lead), dest[at:]...)
	model.Renumber(req.BoardID, next)
	f.boards[req.BoardID] = next
	return nil
}

func (f *fakeAPI) InvalidateBoard(ctx context.Context, boardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted[boardID]++
	return nil
}

func (f *fakeAPI) moveCalls() []model.MoveLeadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MoveLeadRequest(nil), f.moves...)
}

func (f *fakeAPI) fetchCount(boardID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[boardID]
}

type memJournal struct {
	mu   sync.Mutex
	recs []model.MoveRecord

	// When block is set, RecordMove signals entered and waits for block to close.
	block   chan struct{}
	entered chan struct{}
}

func (j *memJournal) RecordMove(ctx context.Context, rec model.MoveRecord) error {
	if j.entered != nil {
		j.entered <- struct{}{}
	}
	if j.block != nil {
		<-j.block
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recs = append(j.recs, rec)
	return nil
}

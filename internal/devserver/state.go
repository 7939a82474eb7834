package devserver

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"leadboard/internal/model"

	"github.com/google/uuid"
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// State is the in-memory CRM. Every board keeps its leads in sortOrder order, renumbered
// after each write.
type State struct {
	mu         sync.Mutex
	workspaces []*workspace
	boards     map[string]*boardState
	leadBoard  map[string]string
	now        func() time.Time
	newID      func() string
}

type workspace struct {
	id     string
	name   string
	boards []string
}

type boardState struct {
	id          string
	name        string
	workspaceID string
	leads       []model.Lead
}

func NewState() *State {
	return &State{
		boards:    map[string]*boardState{},
		leadBoard: map[string]string{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *State) ListWorkspaces(page, size int) model.Page[model.Workspace] {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Workspace, 0, len(s.workspaces))
	for _, w := range s.workspaces {
		all = append(all, s.workspaceLocked(w))
	}
	return paginate(all, page, size)
}

func (s *State) GetWorkspace(id string) (model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.findWorkspaceLocked(id)
	if w == nil {
		return model.Workspace{}, NotFoundError{Kind: "workspace", ID: id}
	}
	return s.workspaceLocked(w), nil
}

func (s *State) CreateWorkspace(req model.CreateWorkspaceRequest) (model.Workspace, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Workspace{}, ValidationError{Message: "workspace name is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &workspace{id: s.newID(), name: name}
	s.workspaces = append(s.workspaces, w)
	return s.workspaceLocked(w), nil
}

func (s *State) CreateBoard(req model.CreateBoardRequest) (model.Board, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Board{}, ValidationError{Message: "board name is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.findWorkspaceLocked(req.WorkspaceID)
	if w == nil {
		return model.Board{}, NotFoundError{Kind: "workspace", ID: req.WorkspaceID}
	}
	b := &boardState{id: s.newID(), name: name, workspaceID: w.id}
	s.boards[b.id] = b
	w.boards = append(w.boards, b.id)
	return model.Board{ID: b.id, Name: b.name, Leads: []model.Lead{}}, nil
}

func (s *State) UpdateBoard(id string, req model.UpdateBoardRequest) (model.Board, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Board{}, ValidationError{Message: "board name is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return model.Board{}, NotFoundError{Kind: "board", ID: id}
	}
	b.name = name
	return model.Board{ID: b.id, Name: b.name, Leads: []model.Lead{}}, nil
}

// DeleteBoard removes the board and its leads.
func (s *State) DeleteBoard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return NotFoundError{Kind: "board", ID: id}
	}
	for _, l := range b.leads {
		delete(s.leadBoard, l.ID)
	}
	delete(s.boards, id)
	if w := s.findWorkspaceLocked(b.workspaceID); w != nil {
		kept := w.boards[:0]
		for _, bid := range w.boards {
			if bid != id {
				kept = append(kept, bid)
			}
		}
		w.boards = kept
	}
	return nil
}

func (s *State) LeadsPage(boardID string, page, size int) (model.LeadPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return model.LeadPage{}, NotFoundError{Kind: "board", ID: boardID}
	}
	return paginate(append([]model.Lead(nil), b.leads...), page, size), nil
}

// CreateLead appends the lead to the end of its board.
func (s *State) CreateLead(req model.CreateLeadRequest) (model.Lead, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Lead{}, ValidationError{Message: "lead name is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[req.BoardID]
	if !ok {
		return model.Lead{}, NotFoundError{Kind: "board", ID: req.BoardID}
	}
	l := model.Lead{
		ID:        s.newID(),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Disease:   strings.TrimSpace(req.Disease),
		Note:      req.Note,
		BoardID:   b.id,
		SortOrder: len(b.leads),
		CreatedAt: s.now(),
	}
	b.leads = append(b.leads, l)
	s.leadBoard[l.ID] = b.id
	return l, nil
}

func (s *State) UpdateLead(id string, req model.UpdateLeadRequest) (model.Lead, error) {
	var date *string
	if req.Date != nil {
		if d := strings.TrimSpace(*req.Date); d != "" {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return model.Lead{}, ValidationError{Message: "date must be YYYY-MM-DD"}
			}
			date = &d
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, i, err := s.findLeadLocked(id)
	if err != nil {
		return model.Lead{}, err
	}
	l := &b.leads[i]
	if name := strings.TrimSpace(req.Name); name != "" {
		l.Name = name
	}
	l.Phone = strings.TrimSpace(req.Phone)
	l.Disease = strings.TrimSpace(req.Disease)
	l.Note = req.Note
	if req.Date != nil {
		l.Date = date
	}
	return *l, nil
}

func (s *State) DeleteLead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, i, err := s.findLeadLocked(id)
	if err != nil {
		return err
	}
	b.leads = append(b.leads[:i:i], b.leads[i+1:]...)
	model.Renumber(b.id, b.leads)
	delete(s.leadBoard, id)
	return nil
}

// MoveLead removes the lead from its board and inserts it into req.BoardID at req.SortOrder
// (clamped to the end), renumbering both boards.
func (s *State) MoveLead(req model.MoveLeadRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, i, err := s.findLeadLocked(req.LeadID)
	if err != nil {
		return err
	}
	to, ok := s.boards[req.BoardID]
	if !ok {
		return NotFoundError{Kind: "board", ID: req.BoardID}
	}
	if req.SortOrder < 0 {
		return ValidationError{Message: "sortOrder must not be negative"}
	}
	lead := from.leads[i]
	from.leads = append(from.leads[:i:i], from.leads[i+1:]...)
	model.Renumber(from.id, from.leads)

	at := req.SortOrder
	if at > len(to.leads) {
		at = len(to.leads)
	}
	next := make([]model.Lead, 0, len(to.leads)+1)
	next = append(next, to.leads[:at]...)
	next = append(next, lead)
	next = append(next, to.leads[at:]...)
	model.Renumber(to.id, next)
	to.leads = next
	s.leadBoard[lead.ID] = to.id
	return nil
}

func (s *State) findWorkspaceLocked(id string) *workspace {
	for _, w := range s.workspaces {
		if w.id == id {
			return w
		}
	}
	return nil
}

func (s *State) findLeadLocked(id string) (*boardState, int, error) {
	b, ok := s.boards[s.leadBoard[id]]
	if !ok {
		return nil, -1, NotFoundError{Kind: "lead", ID: id}
	}
	i := model.IndexOfLead(b.leads, id)
	if i < 0 {
		return nil, -1, NotFoundError{Kind: "lead", ID: id}
	}
	return b, i, nil
}

func (s *State) workspaceLocked(w *workspace) model.Workspace {
	out := model.Workspace{ID: w.id, Name: w.name, Boards: make([]model.Board, 0, len(w.boards))}
	for _, id := range w.boards {
		if b, ok := s.boards[id]; ok {
			out.Boards = append(out.Boards, model.Board{ID: b.id, Name: b.name, Leads: []model.Lead{}})
		}
	}
	return out
}

func paginate[T any](all []T, page, size int) model.Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	pages := (len(all) + size - 1) / size
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	data := make([]T, 0, end-start)
	data = append(data, all[start:end]...)
	return model.Page[T]{Data: data, Success: true, AllElements: len(all), AllPages: pages}
}

package model

import (
	"sort"
	"strings"
	"time"
)

type Workspace struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Boards []Board `json:"boards"`
}

type Board struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Leads []Lead `json:"leads"`
}

type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Disease string `json:"disease"`
	Note    string `json:"note"`
	// Date is an optional follow-up date (YYYY-MM-DD) set from the edit form.
	Date      *string   `json:"date"`
	BoardID   string    `json:"boardId,omitempty"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page is the paginated envelope used by list endpoints. Pages are 1-indexed.
type Page[T any] struct {
	Data        []T  `json:"data"`
	Success     bool `json:"success"`
	AllElements int  `json:"allElements"`
	AllPages    int  `json:"allPages"`
}

type LeadPage = Page[Lead]

type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

type CreateBoardRequest struct {
	Name        string `json:"name"`
	WorkspaceID string `json:"workspaceId"`
}

type UpdateBoardRequest struct {
	Name string `json:"name"`
}

type CreateLeadRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Disease string `json:"disease"`
	Note    string `json:"note"`
	BoardID string `json:"boardId"`
}

type UpdateLeadRequest struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Disease string  `json:"disease"`
	Note    string  `json:"note"`
	Date    *string `json:"date"`
}

// MoveLeadRequest is the body of the single authoritative reorder/move call.
type MoveLeadRequest struct {
	LeadID       string `json:"leadId"`
	BoardID      string `json:"boardId"`
	SortOrder    int    `json:"sortOrder"`
	OldSortOrder int    `json:"oldSortOrder"`
}

// SortLeads orders leads by sortOrder, then CreatedAt, then ID.
func SortLeads(leads []Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return compareLeads(leads[i], leads[j]) < 0
	})
}

func compareLeads(a, b Lead) int {
	if a.SortOrder != b.SortOrder {
		if a.SortOrder < b.SortOrder {
			return -1
		}
		return 1
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return -1
	}
	if a.CreatedAt.After(b.CreatedAt) {
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// Renumber assigns sortOrder = position and stamps boardID on every lead.
func Renumber(boardID string, leads []Lead) {
	for i := range leads {
		leads[i].SortOrder = i
		leads[i].BoardID = boardID
	}
}

// IndexOfLead returns the position of id in leads, or -1.
func IndexOfLead(leads []Lead, id string) int {
	id = strings.TrimSpace(id)
	for i := range leads {
		if leads[i].ID == id {
			return i
		}
	}
	return -1
}

func (w Workspace) FindBoard(id string) (*Board, bool) {
	for i := range w.Boards {
		if w.Boards[i].ID == id {
			return &w.Boards[i], true
		}
	}
	return nil, false
}

// MoveRecord is one entry of the local move journal.
type MoveRecord struct {
	ID           int64     `json:"id,omitempty"`
	LeadID       string    `json:"leadId"`
	FromBoardID  string    `json:"fromBoardId"`
	ToBoardID    string    `json:"toBoardId"`
	SortOrder    int       `json:"sortOrder"`
	OldSortOrder int       `json:"oldSortOrder"`
	OK           bool      `json:"ok"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

package board

import (
	"strings"

	"leadboard/internal/model"
)

// Session is the state of one pointer-drag gesture.
type Session struct {
	ActiveLeadID string
	ActiveLead   model.Lead
	// OriginBoardID is captured at drag start and never changes during the gesture.
	OriginBoardID string
	HoverTargetID string
	// IsOverBoard distinguishes hovering a column's background from hovering a lead.
	IsOverBoard bool
}

type tracker struct {
	session *Session
}

func (t *tracker) begin(lead model.Lead, originBoardID string) {
	t.session = &Session{
		ActiveLeadID:  lead.ID,
		ActiveLead:    lead,
		OriginBoardID: originBoardID,
	}
}

func (t *tracker) hover(targetID string, overBoard bool) {
	if t.session == nil {
		return
	}
	t.session.HoverTargetID = targetID
	t.session.IsOverBoard = overBoard
}

// current returns the session when it belongs to activeID.
func (t *tracker) current(activeID string) (*Session, bool) {
	if t.session == nil || t.session.ActiveLeadID != strings.TrimSpace(activeID) {
		return nil, false
	}
	return t.session, true
}

func (t *tracker) clear() {
	t.session = nil
}

// dropTarget is a hover target resolved to a board.
type dropTarget struct {
	boardID   string
	overBoard bool
	// leadID is the hovered lead when overBoard is false.
	leadID string
}

// resolveTarget maps a board id, or failing that a lead id, to its board in view.
func resolveTarget(view model.Workspace, targetID string) (dropTarget, bool) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return dropTarget{}, false
	}
	if _, ok := view.FindBoard(targetID); ok {
		return dropTarget{boardID: targetID, overBoard: true}, true
	}
	if boardID, ok := boardOfLead(view, targetID); ok {
		return dropTarget{boardID: boardID, leadID: targetID}, true
	}
	return dropTarget{}, false
}

func boardOfLead(view model.Workspace, leadID string) (string, bool) {
	for _, b := range view.Boards {
		if model.IndexOfLead(b.Leads, leadID) >= 0 {
			return b.ID, true
		}
	}
	return "", false
}

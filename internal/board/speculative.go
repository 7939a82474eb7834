package board

import "leadboard/internal/model"

// Speculate computes the preview arrangement for hovering activeID over destBoardID.
//
// base is the latest speculative snapshot, or the authoritative workspace when no snapshot
// exists yet. The origin board is always re-derived from base, so calling Speculate again with
// the same inputs against its own result is a no-op.
//
// Only cross-board moves are previewed. The lead is removed from its current board and appended
// to the destination with sortOrder = len(destination). The result shares every lead slice with
// base except the two affected boards. ok=false means base is unchanged.
func Speculate(base model.Workspace, activeID, destBoardID string) (model.Workspace, bool) {
	originID, ok := boardOfLead(base, activeID)
	if !ok || originID == destBoardID {
		return base, false
	}
	originIdx, destIdx := -1, -1
	for i := range base.Boards {
		switch base.Boards[i].ID {
		case originID:
			originIdx = i
		case destBoardID:
			destIdx = i
		}
	}
	if originIdx < 0 || destIdx < 0 {
		return base, false
	}

	origin := base.Boards[originIdx]
	dest := base.Boards[destIdx]
	leadIdx := model.IndexOfLead(origin.Leads, activeID)
	lead := origin.Leads[leadIdx]

	remaining := make([]model.Lead, 0, len(origin.Leads)-1)
	for _, l := range origin.Leads {
		if l.ID != activeID {
			remaining = append(remaining, l)
		}
	}

	lead.BoardID = dest.ID
	lead.SortOrder = len(dest.Leads)
	appended := make([]model.Lead, 0, len(dest.Leads)+1)
	appended = append(appended, dest.Leads...)
	appended = append(appended, lead)

	next := model.Workspace{ID: base.ID, Name: base.Name, Boards: append([]model.Board(nil), base.Boards...)}
	next.Boards[originIdx].Leads = remaining
	next.Boards[destIdx].Leads = appended
	return next, true
}

// overlay returns auth with each board's leads replaced by the snapshot's, when present.
// The board set and order always come from auth.
func overlay(auth model.Workspace, snap *model.Workspace) model.Workspace {
	if snap == nil {
		return auth
	}
	byID := make(map[string][]model.Lead, len(snap.Boards))
	for _, b := range snap.Boards {
		byID[b.ID] = b.Leads
	}
	out := model.Workspace{ID: auth.ID, Name: auth.Name, Boards: make([]model.Board, len(auth.Boards))}
	for i, b := range auth.Boards {
		out.Boards[i] = b
		if leads, ok := byID[b.ID]; ok {
			out.Boards[i].Leads = leads
		}
	}
	return out
}

// Package relationship derives the collaboration state between a viewer and
// another user from the stored relation rows, and plans the single
// transition the viewer's "act" control performs from that state.
package relationship

import (
	"labbook/internal/models"
)

// State is the relation as seen from the viewer's side.
type State string

const (
	StateSelf            State = "self"
	StateNone            State = "none"
	StatePendingOutgoing State = "pending_outgoing"
	StatePendingIncoming State = "pending_incoming"
	StateAccepted        State = "accepted"
	StateRejected        State = "rejected"
)

// View is what the viewer sees for one target user.
type View struct {
	ViewerID   uint                 `json:"viewer_id"`
	TargetID   uint                 `json:"target_id"`
	State      State                `json:"state"`
	Actionable bool                 `json:"actionable"`
	Relation   *models.Collaborator `json:"relation,omitempty"`
}

// Latest picks the authoritative row: the most recently created, with the
// higher id winning ties. It returns nil for an empty slice.
func Latest(rows []models.Collaborator) *models.Collaborator {
	var latest *models.Collaborator
	for i := range rows {
		row := &rows[i]
		if latest == nil ||
			row.CreatedAt.After(latest.CreatedAt) ||
			(row.CreatedAt.Equal(latest.CreatedAt) && row.ID > latest.ID) {
			latest = row
		}
	}
	return latest
}

// Counterparts groups rows the user takes part in by the other participant
// and keeps the latest row of each pair.
func Counterparts(userID uint, rows []models.Collaborator) map[uint]*models.Collaborator {
	byOther := make(map[uint][]models.Collaborator)
	for _, r := range rows {
		if r.RequesterID != userID && r.ReceiverID != userID {
			continue
		}
		other := r.Other(userID)
		byOther[other] = append(byOther[other], r)
	}
	out := make(map[uint]*models.Collaborator, len(byOther))
	for other, pair := range byOther {
		out[other] = Latest(pair)
	}
	return out
}

// ViewsFor resolves the user's state towards every counterpart in rows.
func ViewsFor(userID uint, rows []models.Collaborator) map[uint]View {
	latest := Counterparts(userID, rows)
	views := make(map[uint]View, len(latest))
	for other, row := range latest {
		views[other] = Resolve(userID, other, row)
	}
	return views
}

// Resolve maps the latest row between viewer and target onto the viewer's
// state. A rejected row blocks the requester but reads as no relation for
// the receiver.
func Resolve(viewerID, targetID uint, latest *models.Collaborator) View {
	v := View{ViewerID: viewerID, TargetID: targetID, State: StateNone}
	if viewerID == targetID {
		v.State = StateSelf
		return v
	}

	if latest != nil && involves(latest, viewerID, targetID) {
		switch latest.Status {
		case models.CollaboratorStatusAccepted:
			v.State = StateAccepted
			v.Relation = latest
		case models.CollaboratorStatusPending:
			v.Relation = latest
			if latest.RequesterID == viewerID {
				v.State = StatePendingOutgoing
			} else {
				v.State = StatePendingIncoming
			}
		case models.CollaboratorStatusRejected:
			if latest.RequesterID == viewerID {
				v.State = StateRejected
				v.Relation = latest
			}
		}
	}

	v.Actionable = actionable(v.State)
	return v
}

func involves(row *models.Collaborator, a, b uint) bool {
	return (row.RequesterID == a && row.ReceiverID == b) ||
		(row.RequesterID == b && row.ReceiverID == a)
}

func actionable(s State) bool {
	switch s {
	case StateNone, StatePendingIncoming, StateAccepted:
		return true
	default:
		return false
	}
}

// Effect is the store mutation a transition requires.
type Effect string

const (
	EffectNone   Effect = "none"
	EffectCreate Effect = "create"
	EffectAccept Effect = "accept"
	EffectDelete Effect = "delete"
	EffectReject Effect = "reject"
)

// Transition is a planned move from one state to the next.
type Transition struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Effect Effect `json:"effect"`
}

// Plan returns the transition "act" performs from v. Disconnecting an
// accepted relation needs confirmed; without it Plan reports
// ErrConfirmationRequired. Self views are rejected with ErrSelfRelation.
func Plan(v View, confirmed bool) (Transition, error) {
	t := Transition{From: v.State, To: v.State, Effect: EffectNone}
	switch v.State {
	case StateSelf:
		return t, ErrSelfRelation
	case StateNone:
		t.To, t.Effect = StatePendingOutgoing, EffectCreate
	case StatePendingIncoming:
		t.To, t.Effect = StateAccepted, EffectAccept
	case StateAccepted:
		if !confirmed {
			return t, ErrConfirmationRequired
		}
		t.To, t.Effect = StateNone, EffectDelete
	case StatePendingOutgoing, StateRejected:
		// waiting on the other party, or declined for good
	}
	return t, nil
}

// PlanDecline returns the transition for the receiver declining a request.
// Only a pending incoming request can be declined.
func PlanDecline(v View) (Transition, error) {
	t := Transition{From: v.State, To: v.State, Effect: EffectNone}
	if v.State == StateSelf {
		return t, ErrSelfRelation
	}
	if v.State != StatePendingIncoming {
		return t, ErrNothingToDecline
	}
	// The requester sees rejected; the receiver sees no relation.
	t.To, t.Effect = StateNone, EffectReject
	return t, nil
}

var (
	// ErrSelfRelation is returned when a user acts on themselves.
	ErrSelfRelation = models.NewValidationError("You cannot collaborate with yourself")
	// ErrConfirmationRequired is returned when removing a collaborator without confirming.
	ErrConfirmationRequired = models.NewValidationError("Confirm removing this collaborator")
	// ErrNothingToDecline is returned when there is no incoming request to decline.
	ErrNothingToDecline = models.NewValidationError("No pending request from this user")
)

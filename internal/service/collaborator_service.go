package service

import (
	"context"
	"sort"
	"time"

	"labbook/internal/events"
	"labbook/internal/middleware"
	"labbook/internal/models"
	"labbook/internal/observability"
	"labbook/internal/relationship"
	"labbook/internal/repository"
)

// CollaboratorService runs the collaboration relation state machine against
// the store.
type CollaboratorService struct {
	collabRepo  repository.CollaboratorRepository
	profileRepo repository.ProfileRepository
	events      events.Publisher
}

// ActResult is the transition performed and the state read back afterwards.
type ActResult struct {
	Transition relationship.Transition `json:"transition"`
	View       relationship.View       `json:"view"`
}

// IncomingRequest is a pending request waiting on the viewer.
type IncomingRequest struct {
	ID        uint                  `json:"id"`
	From      models.ProfileSummary `json:"from"`
	CreatedAt time.Time             `json:"created_at"`
}

// RelationChange is the payload of a relation.changed event.
type RelationChange struct {
	ActorID  uint                `json:"actor_id"`
	TargetID uint                `json:"target_id"`
	Effect   relationship.Effect `json:"effect"`
}

// NewCollaboratorService returns a new CollaboratorService.
func NewCollaboratorService(
	collabRepo repository.CollaboratorRepository,
	profileRepo repository.ProfileRepository,
	publisher events.Publisher,
) *CollaboratorService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &CollaboratorService{
		collabRepo:  collabRepo,
		profileRepo: profileRepo,
		events:      publisher,
	}
}

// Status reads the latest relation row between viewer and target and
// resolves the viewer's state.
func (s *CollaboratorService) Status(ctx context.Context, viewerID, targetID uint) (relationship.View, error) {
	if viewerID == targetID {
		return relationship.Resolve(viewerID, targetID, nil), nil
	}
	if _, err := s.profileRepo.GetByID(ctx, targetID); err != nil {
		return relationship.View{}, err
	}
	rows, err := s.collabRepo.Between(ctx, viewerID, targetID)
	if err != nil {
		return relationship.View{}, err
	}
	return relationship.Resolve(viewerID, targetID, relationship.Latest(rows)), nil
}

// Act performs the viewer's single action towards target. State is re-read
// first so a stale screen never drives the transition. Removing an accepted
// collaborator needs confirmed.
func (s *CollaboratorService) Act(ctx context.Context, viewerID, targetID uint, confirmed bool) (*ActResult, error) {
	view, err := s.Status(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	t, err := relationship.Plan(view, confirmed)
	if err != nil {
		return nil, err
	}
	return s.perform(ctx, view, t)
}

// Decline rejects an incoming request. The requester is left in the
// rejected state for good.
func (s *CollaboratorService) Decline(ctx context.Context, viewerID, requesterID uint) (*ActResult, error) {
	view, err := s.Status(ctx, viewerID, requesterID)
	if err != nil {
		return nil, err
	}
	t, err := relationship.PlanDecline(view)
	if err != nil {
		return nil, err
	}
	return s.perform(ctx, view, t)
}

func (s *CollaboratorService) perform(ctx context.Context, view relationship.View, t relationship.Transition) (_ *ActResult, err error) {
	if t.Effect == relationship.EffectNone {
		return &ActResult{Transition: t, View: view}, nil
	}

	ctx = middleware.WithPeer(ctx, view.TargetID)
	ctx, span := observability.StartOperation(ctx, "relation.transition",
		observability.UserAttr(observability.AttrViewerID, view.ViewerID),
		observability.UserAttr(observability.AttrPeerID, view.TargetID),
		observability.AttrEffect.String(string(t.Effect)))
	defer func() { observability.EndOperation(span, err) }()

	switch t.Effect {
	case relationship.EffectCreate:
		err = s.collabRepo.Create(ctx, &models.Collaborator{
			RequesterID: view.ViewerID,
			ReceiverID:  view.TargetID,
			Status:      models.CollaboratorStatusPending,
		})
	case relationship.EffectAccept:
		err = s.collabRepo.UpdateStatus(ctx, view.Relation.ID, models.CollaboratorStatusAccepted)
	case relationship.EffectReject:
		err = s.collabRepo.UpdateStatus(ctx, view.Relation.ID, models.CollaboratorStatusRejected)
	case relationship.EffectDelete:
		err = s.collabRepo.DeleteBetween(ctx, view.ViewerID, view.TargetID)
	}
	if err != nil {
		return nil, err
	}
	observability.RelationTransitions.WithLabelValues(string(t.Effect)).Inc()

	after, err := s.Status(ctx, view.ViewerID, view.TargetID)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.New(events.RelationChanged, RelationChange{
		ActorID:  view.ViewerID,
		TargetID: view.TargetID,
		Effect:   t.Effect,
	}, view.ViewerID, view.TargetID))

	return &ActResult{Transition: t, View: after}, nil
}

// CollaboratorIDs returns the users whose latest relation with userID is
// accepted.
func (s *CollaboratorService) CollaboratorIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	ids := make(map[uint]struct{})
	if userID == 0 {
		return ids, nil
	}
	rows, err := s.collabRepo.ListInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}
	for other, v := range relationship.ViewsFor(userID, rows) {
		if v.State == relationship.StateAccepted {
			ids[other] = struct{}{}
		}
	}
	return ids, nil
}

// ListCollaborators returns the accepted collaborators of userID ordered by id.
func (s *CollaboratorService) ListCollaborators(ctx context.Context, userID uint) ([]models.ProfileSummary, error) {
	rows, err := s.collabRepo.ListInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.ProfileSummary{}
	for other, row := range relationship.Counterparts(userID, rows) {
		if relationship.Resolve(userID, other, row).State != relationship.StateAccepted {
			continue
		}
		out = append(out, models.Summary(counterpartProfile(row, other), other))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListIncoming returns pending requests waiting on userID, newest first.
func (s *CollaboratorService) ListIncoming(ctx context.Context, userID uint) ([]IncomingRequest, error) {
	rows, err := s.collabRepo.ListInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []IncomingRequest{}
	for other, row := range relationship.Counterparts(userID, rows) {
		if relationship.Resolve(userID, other, row).State != relationship.StatePendingIncoming {
			continue
		}
		out = append(out, IncomingRequest{
			ID:        row.ID,
			From:      models.Summary(counterpartProfile(row, other), other),
			CreatedAt: row.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func counterpartProfile(row *models.Collaborator, other uint) *models.Profile {
	if row.RequesterID == other {
		return row.Requester
	}
	return row.Receiver
}

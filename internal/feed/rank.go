// Package feed scores experiments for a viewer and splits a page of them
// into the three sections the home feed renders.
package feed

import (
	"slices"
	"time"

	"labbook/internal/models"
)

const (
	// PageSize is how many posts one feed page loads and may show.
	PageSize = 15
	// SectionLimit caps the first two sections.
	SectionLimit = 5

	scoreCollaborator = 80
	scoreEngaged      = 60
	scoreRecent       = 40
	scoreValidations  = 20
	scoreSolutions    = 10
	agePenaltyPerDay  = 5

	validationsThreshold = 5
	solutionsThreshold   = 3

	recentWindow = 24 * time.Hour
	activeWindow = 3 * 24 * time.Hour
	day          = 24 * time.Hour
)

// Engagement holds per-post counts.
type Engagement struct {
	Validations int `json:"validations"`
	Solutions   int `json:"solutions"`
}

// Signals is the viewer context ranking depends on.
type Signals struct {
	CollaboratorIDs map[uint]struct{}
	Validated       map[uint]bool
	Commented       map[uint]bool
	Counts          map[uint]Engagement
}

func (s Signals) isCollaborator(userID uint) bool {
	_, ok := s.CollaboratorIDs[userID]
	return ok
}

func (s Signals) engaged(postID uint) bool {
	return s.Validated[postID] || s.Commented[postID]
}

// Ranked is a post with its score.
type Ranked struct {
	Post  models.Post `json:"post"`
	Score int         `json:"score"`
}

// Sections is one rendered feed page.
type Sections struct {
	ActiveCollaborations []Ranked  `json:"active_collaborations"`
	OngoingDiscussions   []Ranked  `json:"ongoing_discussions"`
	Explore              []Ranked  `json:"explore"`
	ReferenceNow         time.Time `json:"reference_now"`
}

// Len is the number of posts shown across all sections.
func (s Sections) Len() int {
	return len(s.ActiveCollaborations) + len(s.OngoingDiscussions) + len(s.Explore)
}

// ReferenceNow is the newest created_at in posts. Ranking measures recency
// against it rather than the wall clock so the same page always ranks the
// same way.
func ReferenceNow(posts []models.Post) time.Time {
	var now time.Time
	for i := range posts {
		if posts[i].CreatedAt.After(now) {
			now = posts[i].CreatedAt
		}
	}
	return now
}

// AgeDays is the whole number of days between created and now, never negative.
func AgeDays(created, now time.Time) int {
	age := now.Sub(created)
	if age <= 0 {
		return 0
	}
	return int(age / day)
}

// Score computes the relevance of p for the viewer described by s.
func Score(p models.Post, s Signals, now time.Time) int {
	score := 0
	if s.isCollaborator(p.UserID) {
		score += scoreCollaborator
	}
	if s.engaged(p.ID) {
		score += scoreEngaged
	}
	if now.Sub(p.CreatedAt) <= recentWindow {
		score += scoreRecent
	}
	counts := s.Counts[p.ID]
	if counts.Validations > validationsThreshold {
		score += scoreValidations
	}
	if counts.Solutions > solutionsThreshold {
		score += scoreSolutions
	}
	score -= agePenaltyPerDay * AgeDays(p.CreatedAt, now)
	return score
}

// Rank scores every post and orders them by score, newest first on ties.
// The input slice is not modified.
func Rank(posts []models.Post, s Signals) []Ranked {
	now := ReferenceNow(posts)
	ranked := make([]Ranked, len(posts))
	for i := range posts {
		ranked[i] = Ranked{Post: posts[i], Score: Score(posts[i], s, now)}
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		if c := b.Post.CreatedAt.Compare(a.Post.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.Post.ID > b.Post.ID:
			return -1
		case a.Post.ID < b.Post.ID:
			return 1
		}
		return 0
	})
	return ranked
}

// Sectionize splits ranked posts into sections. Each post lands in at most
// one section and score order is kept within each.
func Sectionize(ranked []Ranked, s Signals, now time.Time) Sections {
	out := Sections{
		ActiveCollaborations: []Ranked{},
		OngoingDiscussions:   []Ranked{},
		Explore:              []Ranked{},
		ReferenceNow:         now,
	}
	placed := make([]bool, len(ranked))

	for i, r := range ranked {
		if len(out.ActiveCollaborations) == SectionLimit {
			break
		}
		if !s.isCollaborator(r.Post.UserID) {
			continue
		}
		if now.Sub(r.Post.CreatedAt) <= activeWindow || s.engaged(r.Post.ID) {
			out.ActiveCollaborations = append(out.ActiveCollaborations, r)
			placed[i] = true
		}
	}

	for i, r := range ranked {
		if len(out.OngoingDiscussions) == SectionLimit {
			break
		}
		if placed[i] {
			continue
		}
		counts := s.Counts[r.Post.ID]
		if counts.Validations > 0 || counts.Solutions > 0 {
			out.OngoingDiscussions = append(out.OngoingDiscussions, r)
			placed[i] = true
		}
	}

	remaining := PageSize - len(out.ActiveCollaborations) - len(out.OngoingDiscussions)
	for i, r := range ranked {
		if len(out.Explore) >= remaining {
			break
		}
		if !placed[i] {
			out.Explore = append(out.Explore, r)
			placed[i] = true
		}
	}

	return out
}

// Build ranks posts and splits them into sections.
func Build(posts []models.Post, s Signals) Sections {
	return Sectionize(Rank(posts, s), s, ReferenceNow(posts))
}

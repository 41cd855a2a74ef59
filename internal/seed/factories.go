// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"labbook/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db     *gorm.DB
	opts   Options
	preset *Preset
	fake   *gofakeit.Faker
	rng    *rand.Rand
	hash   string
	made   int
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options, preset *Preset) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// #nosec G404: acceptable for seeding
	rng := rand.New(rand.NewSource(seed))
	return &Factory{
		db:     db,
		opts:   opts,
		preset: preset,
		fake:   gofakeit.New(seed),
		rng:    rng,
		nextID: 1000,
	}
}

func (f *Factory) passwordHash() (string, error) {
	if f.opts.SkipBcrypt {
		return f.preset.Password, nil
	}
	if f.hash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(f.preset.Password), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		f.hash = string(h)
	}
	return f.hash, nil
}

// pastTime returns a creation time spread over the last opts.MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

func (f *Factory) pick(options []string, n int) models.TagList {
	if len(options) == 0 || n <= 0 {
		return models.TagList{}
	}
	out := models.TagList{}
	for _, i := range f.rng.Perm(len(options)) {
		if len(out) == n {
			break
		}
		out = append(out, options[i])
	}
	return out
}

func (f *Factory) create(ctx context.Context, kind string, row any, id *uint) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		log.Printf("[dry-run] create %s id=%d", kind, *id)
		return nil
	}
	return f.db.WithContext(ctx).Create(row).Error
}

// CreateProfile constructs and persists a sample profile. Optional override
// functions may modify it before saving.
func (f *Factory) CreateProfile(ctx context.Context, overrides ...func(*models.Profile)) (*models.Profile, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	f.made++
	username := fmt.Sprintf("%s%d", strings.ToLower(f.fake.Username()), 100+f.made)
	profile := &models.Profile{
		Username:  username,
		FullName:  f.fake.Name(),
		Email:     username + "@example.com",
		Password:  hash,
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		Bio:       f.fake.Sentence(10),
		Skills:    f.pick(f.preset.Skills, 1+f.rng.Intn(3)),
		CreatedAt: f.pastTime(),
	}
	// One in five makers never filled in a name.
	if f.rng.Intn(5) == 0 {
		profile.FullName = ""
	}

	for _, override := range overrides {
		override(profile)
	}
	if err := f.create(ctx, "profile", profile, &profile.ID); err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateProblem persists a problem built from tmpl and submitted by author.
func (f *Factory) CreateProblem(ctx context.Context, author *models.Profile, tmpl ProblemTemplate) (*models.Problem, error) {
	problem := &models.Problem{
		UserID:             author.ID,
		Title:              tmpl.Title,
		Description:        tmpl.Description,
		AffectedGroup:      tmpl.AffectedGroup,
		Frequency:          tmpl.Frequency,
		CurrentWorkaround:  tmpl.CurrentWorkaround,
		SolutionType:       tmpl.SolutionType,
		ExpectedOutcome:    f.fake.Sentence(8),
		IsRealConfirmation: true,
		CreatedAt:          f.pastTime(),
	}
	if err := f.create(ctx, "problem", problem, &problem.ID); err != nil {
		return nil, err
	}
	return problem, nil
}

// BuildExperiment constructs an experiment from tmpl without persisting it.
func (f *Factory) BuildExperiment(author *models.Profile, tmpl ExperimentTemplate, overrides ...func(*models.Post)) *models.Post {
	statuses := []models.WIPStatus{
		models.WIPIdea, models.WIPExploring, models.WIPPrototype,
		models.WIPTesting, models.WIPCompleted, models.WIPFailed,
	}
	post := &models.Post{
		UserID:           author.ID,
		Title:            tmpl.Title,
		ProblemStatement: tmpl.ProblemStatement,
		Theory:           tmpl.Theory,
		Approach:         tmpl.Approach,
		Explanation:      f.fake.Paragraph(1, 3, 8, " "),
		Observations:     f.fake.Sentence(12),
		FeedbackNeeded:   f.pick(f.preset.Feedback, f.rng.Intn(3)),
		WIPStatus:        statuses[f.rng.Intn(len(statuses))],
		CreatedAt:        f.pastTime(),
	}
	if post.WIPStatus == models.WIPCompleted || post.WIPStatus == models.WIPFailed {
		post.Reflection = f.fake.Sentence(10)
	}
	if f.rng.Intn(3) == 0 {
		post.ExternalLink = f.fake.URL()
	}
	if f.rng.Intn(4) == 0 {
		post.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.fake.UUID())
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreateExperiment builds and persists an experiment.
func (f *Factory) CreateExperiment(ctx context.Context, author *models.Profile, tmpl ExperimentTemplate, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildExperiment(author, tmpl, overrides...)
	if err := f.create(ctx, "post", post, &post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateInsight persists an insight by author on post with a random type.
func (f *Factory) CreateInsight(ctx context.Context, author *models.Profile, post *models.Post) (*models.Solution, error) {
	kind := f.preset.InsightTypes[f.rng.Intn(len(f.preset.InsightTypes))]
	solution := &models.Solution{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   models.FormatInsight(kind, f.fake.Sentence(10)),
		CreatedAt: post.CreatedAt.Add(time.Duration(1+f.rng.Intn(72)) * time.Hour),
	}
	if solution.CreatedAt.After(time.Now()) {
		solution.CreatedAt = time.Now().UTC()
	}
	if err := f.create(ctx, "insight", solution, &solution.ID); err != nil {
		return nil, err
	}
	return solution, nil
}

// CreateValidation persists a validation of post by user.
func (f *Factory) CreateValidation(ctx context.Context, user *models.Profile, post *models.Post) error {
	v := &models.Validation{PostID: post.ID, UserID: user.ID}
	return f.create(ctx, "validation", v, &v.ID)
}

// CreateRelation persists a collaboration row between two profiles.
func (f *Factory) CreateRelation(ctx context.Context, requester, receiver *models.Profile, status models.CollaboratorStatus) (*models.Collaborator, error) {
	relation := &models.Collaborator{
		RequesterID: requester.ID,
		ReceiverID:  receiver.ID,
		Status:      status,
		CreatedAt:   f.pastTime(),
	}
	if err := f.create(ctx, "relation", relation, &relation.ID); err != nil {
		return nil, err
	}
	return relation, nil
}

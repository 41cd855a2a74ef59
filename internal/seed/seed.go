package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"labbook/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	Profiles              int
	ExperimentsPerProfile int
	MaxDays               int
	ShouldClean           bool
	SkipBcrypt            bool
	DryRun                bool
	RandSeed              int64
}

// Summary counts what a run created.
type Summary struct {
	Profiles    int
	Problems    int
	Experiments int
	Insights    int
	Validations int
	Relations   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d profiles, %d problems, %d experiments, %d insights, %d validations, %d relations",
		s.Profiles, s.Problems, s.Experiments, s.Insights, s.Validations, s.Relations)
}

// Seeder fills a database with a believable maker community.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	preset  *Preset
	factory *Factory
}

// NewSeeder returns a Seeder drawing content from preset.
func NewSeeder(db *gorm.DB, opts Options, preset *Preset) *Seeder {
	if opts.Profiles <= 0 {
		opts.Profiles = 12
	}
	if opts.ExperimentsPerProfile <= 0 {
		opts.ExperimentsPerProfile = 2
	}
	return &Seeder{db: db, opts: opts, preset: preset, factory: NewFactory(db, opts, preset)}
}

// Run seeds profiles, problems, experiments, engagement and a mesh of
// collaboration relations in every state.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	log.Printf("Seeding %d profiles with %d experiments each...", s.opts.Profiles, s.opts.ExperimentsPerProfile)
	sum := &Summary{}

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := clearData(ctx, s.db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	profiles := make([]*models.Profile, 0, s.opts.Profiles)
	for i := 0; i < s.opts.Profiles; i++ {
		p, err := s.factory.CreateProfile(ctx)
		if err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	sum.Profiles = len(profiles)

	problems := make([]*models.Problem, 0, len(s.preset.Problems))
	for i, tmpl := range s.preset.Problems {
		p, err := s.factory.CreateProblem(ctx, profiles[i%len(profiles)], tmpl)
		if err != nil {
			return nil, fmt.Errorf("create problem: %w", err)
		}
		problems = append(problems, p)
	}
	sum.Problems = len(problems)

	posts := make([]*models.Post, 0, len(profiles)*s.opts.ExperimentsPerProfile)
	for i, author := range profiles {
		for j := 0; j < s.opts.ExperimentsPerProfile; j++ {
			tmpl := s.preset.Experiments[(i*s.opts.ExperimentsPerProfile+j)%len(s.preset.Experiments)]
			post, err := s.factory.CreateExperiment(ctx, author, tmpl, func(p *models.Post) {
				if len(problems) > 0 && s.factory.rng.Intn(2) == 0 {
					id := problems[s.factory.rng.Intn(len(problems))].ID
					p.ProblemID = &id
				}
			})
			if err != nil {
				return nil, fmt.Errorf("create experiment: %w", err)
			}
			posts = append(posts, post)
		}
	}
	sum.Experiments = len(posts)

	if err := s.engage(ctx, profiles, posts, sum); err != nil {
		return nil, err
	}
	if err := s.relate(ctx, profiles, sum); err != nil {
		return nil, err
	}

	log.Printf("Seeding completed: %s", sum)
	return sum, nil
}

// engage adds insights and validations from makers other than the author.
func (s *Seeder) engage(ctx context.Context, profiles []*models.Profile, posts []*models.Post, sum *Summary) error {
	rng := s.factory.rng
	for _, post := range posts {
		for _, i := range rng.Perm(len(profiles)) {
			reader := profiles[i]
			if reader.ID == post.UserID {
				continue
			}
			if rng.Intn(4) == 0 {
				if _, err := s.factory.CreateInsight(ctx, reader, post); err != nil {
					return fmt.Errorf("create insight: %w", err)
				}
				sum.Insights++
			}
			if rng.Intn(3) == 0 {
				if err := s.factory.CreateValidation(ctx, reader, post); err != nil {
					return fmt.Errorf("create validation: %w", err)
				}
				sum.Validations++
			}
		}
	}
	return nil
}

// relate links neighbouring profiles so every relation state shows up:
// accepted pairs, pending requests, rejections and a re-requested pair
// with two rows.
func (s *Seeder) relate(ctx context.Context, profiles []*models.Profile, sum *Summary) error {
	statuses := []models.CollaboratorStatus{
		models.CollaboratorStatusAccepted,
		models.CollaboratorStatusAccepted,
		models.CollaboratorStatusPending,
		models.CollaboratorStatusRejected,
	}
	for i := 0; i+1 < len(profiles); i++ {
		status := statuses[i%len(statuses)]
		if _, err := s.factory.CreateRelation(ctx, profiles[i], profiles[i+1], status); err != nil {
			return fmt.Errorf("create relation: %w", err)
		}
		sum.Relations++
	}
	if len(profiles) >= 3 {
		// An old pending row superseded by a newer accepted one.
		first, last := profiles[0], profiles[len(profiles)-1]
		old, err := s.factory.CreateRelation(ctx, first, last, models.CollaboratorStatusPending)
		if err != nil {
			return fmt.Errorf("create relation: %w", err)
		}
		current, err := s.factory.CreateRelation(ctx, last, first, models.CollaboratorStatusAccepted)
		if err != nil {
			return fmt.Errorf("create relation: %w", err)
		}
		if !s.opts.DryRun {
			older := current.CreatedAt.AddDate(0, 0, -1)
			if err := s.db.WithContext(ctx).Model(old).Update("created_at", older).Error; err != nil {
				return fmt.Errorf("age relation: %w", err)
			}
		}
		sum.Relations += 2
	}
	return nil
}

var seededTables = []string{"collaborators", "validations", "solutions", "posts", "problems", "profiles"}

func clearData(ctx context.Context, db *gorm.DB) error {
	log.Println("Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.WithContext(ctx).Exec("TRUNCATE TABLE " + strings.Join(seededTables, ", ") + " RESTART IDENTITY CASCADE").Error
	}
	for _, table := range seededTables {
		if err := db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

// EnsureDemoProfile creates the preset's demo account if it does not exist
// yet. It returns the profile either way.
func EnsureDemoProfile(ctx context.Context, db *gorm.DB, preset *Preset) (*models.Profile, error) {
	demo := preset.Demo
	if demo.Username == "" || demo.Email == "" {
		return nil, errors.New("preset has no demo profile")
	}

	var existing models.Profile
	err := db.WithContext(ctx).Where("email = ?", strings.ToLower(demo.Email)).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(preset.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	profile := &models.Profile{
		Username: demo.Username,
		Email:    strings.ToLower(demo.Email),
		FullName: demo.FullName,
		Bio:      demo.Bio,
		Skills:   models.TagList(models.NormalizeList(demo.Skills)),
		Password: string(hash),
	}
	if err := db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	log.Printf("demo profile ensured (%s)", profile.Email)
	return profile, nil
}

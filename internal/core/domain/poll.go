package domain

import (
	"time"

	"github.com/google/uuid"
)

type Poll struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    *Category    `json:"category,omitempty"`
	Tags        []string     `json:"tags"`
	Options     []PollOption `json:"options"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
}

type PollOption struct {
	ID         uuid.UUID `json:"id"`
	PollID     uuid.UUID `json:"poll_id"`
	Text       string    `json:"text"`
	Position   int       `json:"position"`
	VotesCount int64     `json:"votes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsActive reports whether the poll still accepts votes at now. Expiration
// is computed, never stored as a flag.
func (p *Poll) IsActive(now time.Time) bool {
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// Option returns the option with the given id if it belongs to the poll.
func (p *Poll) Option(id uuid.UUID) (PollOption, bool) {
	for _, opt := range p.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return PollOption{}, false
}

func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.VotesCount
	}
	return total
}

type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryTechnology    Category = "technology"
	CategoryScience       Category = "science"
	CategoryPolitics      Category = "politics"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryMusic         Category = "music"
	CategoryMovies        Category = "movies"
	CategoryGaming        Category = "gaming"
	CategoryFood          Category = "food"
	CategoryTravel        Category = "travel"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategoryBusiness      Category = "business"
	CategoryFinance       Category = "finance"
	CategoryFashion       Category = "fashion"
	CategoryArt           Category = "art"
	CategoryBooks         Category = "books"
	CategoryLifestyle     Category = "lifestyle"
	CategoryOther         Category = "other"
)

var Categories = []Category{
	CategoryGeneral, CategoryTechnology, CategoryScience, CategoryPolitics,
	CategorySports, CategoryEntertainment, CategoryMusic, CategoryMovies,
	CategoryGaming, CategoryFood, CategoryTravel, CategoryHealth,
	CategoryEducation, CategoryBusiness, CategoryFinance, CategoryFashion,
	CategoryArt, CategoryBooks, CategoryLifestyle, CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

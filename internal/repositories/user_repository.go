package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Query     string // Search query for name or email
	Status    *models.VerificationStatus
	Role      *models.UserRole
	CollegeID *uint
	Limit     int
	Offset    int
}

// UserRepository owns local user records: registration, verification status
// and college membership. Authentication identity lives in Casdoor; this
// repository is keyed by the Casdoor subject ID.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error

	// Delete hard-removes a user; callers only invoke it for rejected users.
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)

	// SetStatus flips verification status and records the reviewer.
	SetStatus(ctx context.Context, tx *gorm.DB, id string, status models.VerificationStatus, reviewerID string, at time.Time) error

	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) (map[models.VerificationStatus]int64, error)
}

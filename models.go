package access

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus guards authentication; suspended accounts cannot log in.
type UserStatus = string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is the principal model. PasswordHash may be empty for externally
// provisioned accounts; those can never authenticate with a password.
// Users are soft-deleted only: grants and payments reference them.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string         `bun:"first_name" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name" json:"last_name,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"-"`
	Status         UserStatus     `bun:"status" json:"status,omitempty"`
	IsVerified     bool           `bun:"is_verified" json:"is_verified"`
	VerifiedAt     *time.Time     `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// DisplayName is the name shown in session descriptors.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// EnsureStatus backfills the status column for rows created before it existed.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// AccessType is the modality a grant unlocks.
type AccessType = string

const (
	AccessVideo AccessType = "video"
	AccessChat  AccessType = "chat"
	AccessBoth  AccessType = "both"
)

// GrantWindow is how long a paid grant stays usable.
const GrantWindow = 24 * time.Hour

// AccessGrant is a paid, time-boxed permission linking a client to a
// consultation. At most one grant per consultation may carry Active=true;
// the partial unique index in the migrations enforces that across
// processes. Expiry is evaluated at read time, never swept.
type AccessGrant struct {
	bun.BaseModel  `bun:"table:access_grants,alias:agr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ConsultationID uuid.UUID  `bun:"consultation_id,notnull,type:uuid" json:"consultation_id"`
	ClientID       uuid.UUID  `bun:"client_id,notnull,type:uuid" json:"client_id"`
	AdvocateID     uuid.UUID  `bun:"advocate_id,notnull,type:uuid" json:"advocate_id"`
	AccessType     AccessType `bun:"access_type,notnull" json:"access_type"`
	PaymentID      string     `bun:"payment_id,notnull" json:"payment_id"`
	GrantedAt      time.Time  `bun:"granted_at,notnull" json:"granted_at"`
	ExpiresAt      time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	Active         bool       `bun:"active" json:"active"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Lapsed reports whether the grant's window has closed at the given instant.
// A lapsed grant keeps its row and its Active flag; readers treat it as absent.
func (g *AccessGrant) Lapsed(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// Remaining returns the non-negative time left in the grant window.
func (g *AccessGrant) Remaining(now time.Time) time.Duration {
	if g.Lapsed(now) {
		return 0
	}
	return g.ExpiresAt.Sub(now)
}

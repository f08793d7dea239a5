package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleTeacher       UserRole = "teacher"
	RoleHOD           UserRole = "hod"
	RolePrincipal     UserRole = "principal"
	RoleVicePrincipal UserRole = "vice_principal"
	RoleAdmin         UserRole = "admin"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// roleSynonyms maps cleaned post strings (lowercase, separators stripped) to
// canonical roles. Anything not listed normalizes to RoleTeacher: an
// unrecognized post must never grant more than the lowest privilege.
var roleSynonyms = map[string]UserRole{
	"teacher":             RoleTeacher,
	"faculty":             RoleTeacher,
	"lecturer":            RoleTeacher,
	"professor":           RoleTeacher,
	"asstprof":            RoleTeacher,
	"assistantprofessor":  RoleTeacher,
	"associateprofessor":  RoleTeacher,
	"examiner":            RoleTeacher,
	"hod":                 RoleHOD,
	"headofdepartment":    RoleHOD,
	"departmenthead":      RoleHOD,
	"principal":           RolePrincipal,
	"vp":                  RoleVicePrincipal,
	"viceprincipal":       RoleVicePrincipal,
	"vprincipal":          RoleVicePrincipal,
	"coordinator":         RoleVicePrincipal,
	"examcoordinator":     RoleVicePrincipal,
	"admin":               RoleAdmin,
	"administrator":       RoleAdmin,
	"superadmin":          RoleAdmin,
	"systemadministrator": RoleAdmin,
}

// NormalizeRole maps a free-text post string ("Vice-Principal", "VP",
// "assistant professor") to a canonical role. The mapping is idempotent:
// feeding a canonical role back in returns the same role.
func NormalizeRole(raw string) UserRole {
	if role, ok := roleSynonyms[cleanPost(raw)]; ok {
		return role
	}
	return RoleTeacher
}

// IsRecognizedPost reports whether the raw post string maps to a known role
// synonym. Registration payloads are rejected when this is false rather than
// silently normalized.
func IsRecognizedPost(raw string) bool {
	_, ok := roleSynonyms[cleanPost(raw)]
	return ok
}

func cleanPost(raw string) string {
	cleaned := strings.ToLower(raw)
	for _, sep := range []string{" ", "-", "_", ".", "\t"} {
		cleaned = strings.ReplaceAll(cleaned, sep, "")
	}
	return cleaned
}

// IsCoordinator reports whether the role has unrestricted cross-college
// visibility.
func (r UserRole) IsCoordinator() bool {
	return r == RoleAdmin || r == RoleVicePrincipal
}

// IsCollegeScoped reports whether the role is restricted to its own college
// unless an exam assignment grants an exception.
func (r UserRole) IsCollegeScoped() bool {
	return !r.IsCoordinator()
}

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Post     string   `json:"post" gorm:"size:100"` // raw role text as registered
	Role     UserRole `json:"role" gorm:"not null;size:20;index;default:teacher"`

	CollegeID    uint  `json:"college_id" gorm:"not null;index"`
	DepartmentID *uint `json:"department_id" gorm:"index"`

	Status VerificationStatus `json:"status" gorm:"not null;size:20;index;default:pending"`

	// Profile info
	Phone     *string `json:"phone" gorm:"size:20"`
	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	VerifiedBy *string    `json:"verified_by" gorm:"size:255"`
	VerifiedAt *time.Time `json:"verified_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	College    College     `json:"college" gorm:"foreignKey:CollegeID"`
	Department *Department `json:"department" gorm:"foreignKey:DepartmentID"`
}

func (User) TableName() string {
	return "users"
}

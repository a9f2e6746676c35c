package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/profpay/profpay/core"
)

// Roles
const (
	RoleAdmin    = "admin"    // everything, including users management
	RoleOperator = "operator" // reads & writes payers, payments and reference data
	RoleViewer   = "viewer"   // read only
)

var (
	AllRoles   = []string{RoleAdmin, RoleOperator, RoleViewer}
	WriteRoles = []string{RoleAdmin, RoleOperator}

	rolePriorities = map[string]int{
		RoleAdmin:    3,
		RoleOperator: 2,
		RoleViewer:   1,
	}

	Roles = []Role{
		{Name: "Viewer", Value: RoleViewer},
		{Name: "Operator", Value: RoleOperator},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"hashed_password"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) CanWrite() bool   { return u.HasAnyRole(WriteRoles...) }
func (u *User) IsOperator() bool { return u.Role == RoleOperator }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"full_name" validate:"required,notblank,max=200"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,role"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FullName = core.SanitizeString(nu.FullName)
	if nu.Role == "" {
		nu.Role = RoleViewer
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Zero values leave the matching field untouched.
type UpdateUser struct {
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	FullName string `json:"full_name" validate:"omitempty,max=200"`
	Role     string `json:"role" validate:"omitempty,role"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password"`

	// set by Validate for the password policy
	username string
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	uu.FullName = core.SanitizeString(uu.FullName)
	uu.username = origUsr.Username

	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Email != "" && uu.Email != origUsr.Email {
		return svc.CheckUniqueness(ctx, "", uu.Email, origUsr)
	}
	return nil
}

// Apply returns usr with the set fields of uu.
func (uu UpdateUser) Apply(usr User) (User, error) {
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.FullName != "" {
		usr.FullName = uu.FullName
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return usr, nil
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// GetFilter selects a single user by the first set field.
type GetFilter struct {
	ID              int
	Username        string
	Email           string
	UsernameOrEmail string
}

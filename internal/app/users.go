package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quizhub-api/internal/auth"
	"quizhub-api/internal/domain"
)

// RegisterInput is validated before any write happens.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserService covers account lifecycle: registration, login, external
// identity find-or-create, role administration and badge issuance.
type UserService struct {
	users    UserStore
	codec    *auth.TokenCodec
	streak   *StreakService
	validate *validator.Validate
	now      func() time.Time
}

func NewUserService(users UserStore, codec *auth.TokenCodec, streak *StreakService, now func() time.Time) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:    users,
		codec:    codec,
		streak:   streak,
		validate: validator.New(),
		now:      now,
	}
}

// Register creates a new USER account. Field constraints reject before the
// uniqueness probes; no partial write happens on any failure.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, domain.Validation(validationMessage(err))
	}

	if _, err := s.users.FindUserByUsername(ctx, input.Username); err == nil {
		return nil, domain.UserInput("username already taken")
	} else if domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}
	if _, err := s.users.FindUserByEmail(ctx, input.Email); err == nil {
		return nil, domain.UserInput("email already registered")
	} else if domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.Internal("failed to register user", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the password, advances the login streak and issues a
// credential. Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, "", domain.Unauthenticated("invalid credentials")
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", domain.Unauthenticated("invalid credentials")
	}

	identity := domain.Identity{ID: user.ID, Email: user.Email, Role: user.Role}
	user, err = s.streak.RecordLogin(ctx, identity, user.ID)
	if err != nil {
		return nil, "", err
	}

	token, err := s.codec.Issue(identity)
	if err != nil {
		return nil, "", domain.Internal("failed to issue token", err)
	}
	return user, token, nil
}

// FindOrCreateExternal accepts a verified identity from the injected
// external provider and resolves it to a local account, creating one on
// first sign-in. The OAuth exchange itself happens upstream.
func (s *UserService) FindOrCreateExternal(ctx context.Context, ext domain.ExternalIdentity) (*domain.User, string, error) {
	user, err := s.users.FindUserByEmail(ctx, ext.Email)
	if err != nil {
		if domain.KindOf(err) != domain.KindNotFound {
			return nil, "", err
		}
		user = &domain.User{
			ID:        uuid.NewString(),
			Username:  externalUsername(ext),
			Email:     ext.Email,
			Role:      domain.RoleUser,
			CreatedAt: s.now(),
			UpdatedAt: s.now(),
		}
		if err := s.users.InsertUser(ctx, user); err != nil {
			return nil, "", err
		}
	}

	identity := domain.Identity{ID: user.ID, Email: user.Email, Role: user.Role}
	user, err = s.streak.RecordLogin(ctx, identity, user.ID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.codec.Issue(identity)
	if err != nil {
		return nil, "", domain.Internal("failed to issue token", err)
	}
	return user, token, nil
}

// ChangeRole reassigns a user's role. Assigning SUPER_ADMIN, or touching a
// SUPER_ADMIN subject, fails regardless of who asks; that includes a
// SUPER_ADMIN caller.
func (s *UserService) ChangeRole(ctx context.Context, identity domain.Identity, userID string, role domain.Role) (*domain.User, error) {
	if err := auth.Require(identity, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if !domain.ValidRole(role) {
		return nil, domain.UserInput("unknown role")
	}
	if role == domain.RoleSuperAdmin {
		return nil, domain.Forbidden("cannot assign SUPER_ADMIN")
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleSuperAdmin {
		return nil, domain.Forbidden("cannot modify a SUPER_ADMIN")
	}

	if err := s.users.SetUserRole(ctx, userID, role); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// DeleteUser removes an account. SUPER_ADMIN subjects can never be deleted.
func (s *UserService) DeleteUser(ctx context.Context, identity domain.Identity, userID string) error {
	if err := auth.Require(identity, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return err
	}
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleSuperAdmin {
		return domain.Forbidden("cannot delete a SUPER_ADMIN")
	}
	return s.users.DeleteUser(ctx, userID)
}

// AwardBadge attaches a named badge once. Unlike the stats path, this
// mutation checks for duplicates and rejects re-issuance.
func (s *UserService) AwardBadge(ctx context.Context, identity domain.Identity, userID string, badge BadgeInput) (*domain.User, error) {
	if err := auth.Require(identity, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if badge.Name == "" {
		return nil, domain.Validation("badge name is required")
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasBadge(badge.Name) {
		return nil, domain.UserInput("badge already awarded")
	}

	earned := domain.Badge{
		Name:        badge.Name,
		Description: badge.Description,
		Image:       badge.Image,
		EarnedAt:    s.now(),
	}
	if err := s.users.AppendBadge(ctx, userID, earned); err != nil {
		return nil, err
	}
	user.Badges = append(user.Badges, earned)
	return user, nil
}

// Me resolves the caller's own record.
func (s *UserService) Me(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	return s.users.FindUserByID(ctx, identity.ID)
}

func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		switch f.Tag() {
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", strings.ToLower(f.Field()), f.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", strings.ToLower(f.Field()), f.Param())
		case "email":
			return "email is not a valid address"
		default:
			return fmt.Sprintf("%s is required", strings.ToLower(f.Field()))
		}
	}
	return "invalid input"
}

func externalUsername(ext domain.ExternalIdentity) string {
	name := strings.ToLower(strings.ReplaceAll(ext.DisplayName, " ", ""))
	if name == "" {
		name = "user"
	}
	suffix := ext.ExternalID
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return name + "-" + suffix
}

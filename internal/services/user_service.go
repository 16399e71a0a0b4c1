package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/validation"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	users      repository.UserRepository
	events     events.Publisher
	bcryptCost int
}

func NewUserService(users repository.UserRepository, publisher events.Publisher, cfg *config.Config) *UserService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserService{users: users, events: publisher, bcryptCost: cost}
}

// SignUp creates an active LOCAL account. Field problems come back as
// *validation.Errors.
func (s *UserService) SignUp(ctx context.Context, req *dto.SignUpRequest) (*models.User, error) {
	errs := validation.SignUp(req)
	if err := s.checkUnique(ctx, errs, &req.Username, &req.Email, uuid.Nil); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  hash,
		IsActive:  true,
		LoginType: models.LoginTypeLocal,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.duplicateErrors(ctx, user)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "user signed up", "user_id", user.ID.String(), "action", "signup")
	s.publish(ctx, events.UserCreated, user)
	return user, nil
}

// Deactivate clears is_active for the caller. LOCAL accounts must confirm
// with their password.
func (s *UserService) Deactivate(ctx context.Context, callerID uuid.UUID, req *dto.SignOutRequest) error {
	user, err := s.findCaller(ctx, callerID)
	if err != nil {
		return err
	}

	local := !user.IsGoogle()
	errs := validation.SignOut(req, local)
	if local && errs.Empty() && !s.passwordMatches(user, req.Password) {
		errs.Add("password", validation.MsgWrongPassword)
	}
	if err := errs.Err(); err != nil {
		return err
	}

	if err := s.users.Deactivate(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	user.IsActive = false

	slog.InfoContext(ctx, "user deactivated", "user_id", user.ID.String(), "action", "deactivate")
	s.publish(ctx, events.UserDeactivated, user)
	return nil
}

func (s *UserService) Retrieve(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.find(ctx, id)
}

// Current returns the caller's own record. A deactivated account can no
// longer act through tokens issued before deactivation.
func (s *UserService) Current(ctx context.Context, callerID uuid.UUID) (*models.User, error) {
	return s.findCaller(ctx, callerID)
}

// Edit applies a partial update to the caller's own account and returns the
// updated record.
func (s *UserService) Edit(ctx context.Context, callerID uuid.UUID, req *dto.EditUserRequest) (*models.User, error) {
	user, err := s.findCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}

	local := !user.IsGoogle()
	errs := validation.Edit(req, local)
	if local && !errs.Has("current_password") && !s.passwordMatches(user, req.CurrentPassword) {
		errs.Add("current_password", validation.MsgWrongPassword)
		return nil, errs
	}

	username, email := req.Username, req.Email
	if username != nil && *username == user.Username {
		username = nil
	}
	if email != nil && *email == user.Email {
		email = nil
	}
	if err := s.checkUnique(ctx, errs, username, email, user.ID); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	changes := make(map[string]interface{})
	if username != nil {
		changes["username"] = *username
	}
	if email != nil {
		changes["email"] = *email
	}
	if req.Password != nil {
		hash, err := s.hash(*req.Password)
		if err != nil {
			return nil, err
		}
		changes["password"] = hash
	}
	if len(changes) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, user, changes); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			dup := &models.User{ID: user.ID, Username: user.Username, Email: user.Email}
			if username != nil {
				dup.Username = *username
			}
			if email != nil {
				dup.Email = *email
			}
			return nil, s.duplicateErrors(ctx, dup)
		}
		return nil, err
	}

	if username != nil {
		user.Username = *username
	}
	if email != nil {
		user.Email = *email
	}
	if hash, ok := changes["password"].(string); ok {
		user.Password = hash
	}

	slog.InfoContext(ctx, "user updated", "user_id", user.ID.String(), "action", "edit", "fields", len(changes))
	s.publish(ctx, events.UserUpdated, user)
	return user, nil
}

func (s *UserService) find(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) findCaller(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// checkUnique records taken usernames and emails. Fields that already failed
// validation, or are nil, are skipped.
func (s *UserService) checkUnique(ctx context.Context, errs *validation.Errors, username, email *string, exclude uuid.UUID) error {
	if username != nil && !errs.Has("username") {
		taken, err := s.users.UsernameTaken(ctx, *username, exclude)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("username", validation.MsgUsernameTaken)
		}
	}
	if email != nil && !errs.Has("email") {
		taken, err := s.users.EmailTaken(ctx, *email, exclude)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("email", validation.MsgEmailTaken)
		}
	}
	return nil
}

// duplicateErrors is used when a concurrent write won the unique index.
func (s *UserService) duplicateErrors(ctx context.Context, user *models.User) error {
	errs := validation.New()
	if err := s.checkUnique(ctx, errs, &user.Username, &user.Email, user.ID); err != nil {
		return err
	}
	if errs.Empty() {
		errs.Add(validation.NonFieldErrors, "A user with these details already exists.")
	}
	return errs
}

func (s *UserService) passwordMatches(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func (s *UserService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *UserService) publish(ctx context.Context, eventType string, user *models.User) {
	if err := s.events.Publish(ctx, events.NewAccountEvent(eventType, user)); err != nil {
		slog.WarnContext(ctx, "account event not delivered", "event", eventType, "user_id", user.ID.String(), "error", err)
	}
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Email    string `validate:"required,email,max=254"`
	Name     string `validate:"required,min=3,max=64"`
	Password string `validate:"required,min=8,max=72,complex_password"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken string
	User        *models.User
}

// UserService handles registration, login and the user directory.
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	logger                      logging.Logger
	validate                    *validator.Validate
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		logger:                      l.With("module", "user_service"),
		validate:                    newValidator(),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// newValidator panics if the complex_password tag cannot be registered.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("complex_password", func(fl validator.FieldLevel) bool {
		return isPasswordComplex(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register complex_password validation: %v", err))
	}
	return v
}

// Register validates req and creates the user with a bcrypt password hash.
// A taken email yields common.ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrValidation, describeValidation(err))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrInternal
	}

	user := &models.User{Email: req.Email, Name: req.Name, PasswordHash: hash}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: email already registered", common.ErrAlreadyExists)
		}
		s.logger.Error(ctx, "error creating user", "error", err)
		return nil, common.ErrInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies the credentials and issues an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthenticated)
		}
		s.logger.Error(ctx, "error loading user", "error", err)
		return nil, common.ErrInternal
	}

	if !auth.ComparePassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthenticated)
	}

	token, err := auth.GenerateToken(auth.Identity{UserID: user.ID, Name: user.Name, Email: user.Email},
		s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "error signing token", "error", err)
		return nil, common.ErrInternal
	}

	user.PasswordHash = ""
	return &LoginResult{AccessToken: token, User: user}, nil
}

// ListPeers returns every user except userID.
func (s *UserService) ListPeers(ctx context.Context, userID int64) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).ListExcept(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "error listing users", "error", err)
		return nil, common.ErrInternal
	}
	return users, nil
}

// Exists reports whether a user with userID is registered.
func (s *UserService) Exists(ctx context.Context, userID int64) (bool, error) {
	_, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		s.logger.Error(ctx, "error loading user", "error", err)
		return false, common.ErrInternal
	}
	return true, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "complex_password":
			parts = append(parts, "password must contain an uppercase letter, a lowercase letter, a digit and a symbol")
		case "email":
			parts = append(parts, "email is not valid")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			parts = append(parts, field+" is "+fe.Tag())
		}
	}
	return strings.Join(parts, "; ")
}

func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSymbol
}

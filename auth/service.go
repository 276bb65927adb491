package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
	// ErrInvalidToken signals a token that cannot be trusted.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Service handles authentication business logic.
type Service struct {
	repo            Repository
	jwtSecret       []byte
	tokenTTL        time.Duration
	defaultUserType UserType
	now             func() time.Time
}

// LoginResult bundles the token and domain user returned after a successful login.
type LoginResult struct {
	Token string
	User  User
}

// Option customises a Service.
type Option func(*Service)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithDefaultUserType sets the user type assigned when registration omits one.
func WithDefaultUserType(t UserType) Option {
	return func(s *Service) {
		if isValidUserType(t) {
			s.defaultUserType = t
		}
	}
}

// NewService creates a new authentication service.
func NewService(repo Repository, jwtSecret string, opts ...Option) *Service {
	s := &Service{
		repo:            repo,
		jwtSecret:       []byte(jwtSecret),
		tokenTTL:        24 * time.Hour,
		defaultUserType: UserTypeUser,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, fmt.Errorf("auth: email and full_name are required")
	}

	userType := UserType(strings.TrimSpace(string(req.UserType)))
	if userType == "" {
		userType = s.defaultUserType
	}
	if !isValidUserType(userType) {
		return nil, fmt.Errorf("auth: invalid user type %q", userType)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(passwordHash),
		UserType:     userType,
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Login authenticates a user and returns a JWT token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID, user.UserType)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Token: token,
		User:  user,
	}, nil
}

// GetUserByID retrieves user information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IssueToken signs a token for the given identity.
func (s *Service) IssueToken(userID string, userType UserType) (string, error) {
	if userID == "" || !isValidUserType(userType) {
		return "", fmt.Errorf("auth: cannot issue token for %q/%q", userID, userType)
	}
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":   userID,
		"user_type": string(userType),
		"exp":       now.Add(s.tokenTTL).Unix(),
		"iat":       now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// VerifyToken validates a JWT token and returns the identity it carries.
func (s *Service) VerifyToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	typ, ok := claims["user_type"].(string)
	if !ok || !isValidUserType(UserType(typ)) {
		return Claims{}, fmt.Errorf("%w: invalid user_type %q", ErrInvalidToken, typ)
	}
	return Claims{UserID: userID, UserType: UserType(typ)}, nil
}

func isValidUserType(t UserType) bool {
	switch t {
	case UserTypeUser, UserTypeAdmin, UserTypeClient:
		return true
	default:
		return false
	}
}

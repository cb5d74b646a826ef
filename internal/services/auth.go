package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/requestdata"
	"github.com/compasshq/compass-backend/internal/types"
)

type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) (string, string, error)
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	profileRepo   repos.ProfileRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	profileRepo repos.ProfileRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		profileRepo:   profileRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

type jwtClaims struct {
	jwt.RegisteredClaims
}

// RegisterUser creates the user together with their empty profile row
// and logs them in. Returns access and refresh tokens.
func (as *authService) RegisterUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", apierr.BadRequest("invalid_email", fmt.Errorf("invalid email address"))
	}
	if len(password) < 8 {
		return "", "", apierr.BadRequest("weak_password", fmt.Errorf("password must be at least 8 characters"))
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return "", "", fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return "", "", apierr.BadRequest("email_taken", fmt.Errorf("email already registered"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := &types.User{
			ID:             uuid.New(),
			Email:          email,
			Password:       string(hashed),
			InterviewState: types.InterviewNotStarted,
		}
		if _, err := as.userRepo.Create(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if _, err := as.profileRepo.Create(ctx, tx, &types.Profile{ID: uuid.New(), UserID: user.ID}); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		var issueErr error
		accessToken, refreshToken, issueErr = as.issueTokens(ctx, tx, user)
		return issueErr
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
		}
		return "", "", fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", apierr.Unauthorized("invalid_credentials", fmt.Errorf("invalid email or password"))
	}

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issueErr error
		accessToken, refreshToken, issueErr = as.issueTokens(ctx, tx, user)
		return issueErr
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", apierr.Unauthorized("missing_refresh_token", fmt.Errorf("no refresh token on request"))
	}

	var accessToken, refreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := as.userTokenRepo.GetByRefreshToken(ctx, tx, rd.RefreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.Unauthorized("invalid_refresh_token", fmt.Errorf("unknown refresh token"))
			}
			return fmt.Errorf("failed to load refresh token: %w", err)
		}
		if existing.ExpiresAt.Before(time.Now()) {
			_ = as.userTokenRepo.DeleteByID(ctx, tx, existing.ID)
			return apierr.Unauthorized("refresh_token_expired", fmt.Errorf("refresh token expired"))
		}

		user, err := as.userRepo.GetByID(ctx, tx, existing.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user for refresh: %w", err)
		}

		accessToken, refreshToken, err = as.issueTokens(ctx, tx, user)
		if err != nil {
			return err
		}
		return as.userTokenRepo.DeleteByID(ctx, tx, existing.ID)
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return apierr.Unauthorized("missing_token", fmt.Errorf("no token on request"))
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := as.userTokenRepo.GetByAccessToken(ctx, tx, rd.TokenString)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to load token: %w", err)
		}
		return as.userTokenRepo.DeleteByID(ctx, tx, token.ID)
	})
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (string, string, error) {
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", "", fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := uuid.New().String()
	userToken := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(ctx, tx, userToken); err != nil {
		return "", "", fmt.Errorf("failed to store user token: %w", err)
	}
	return accessToken, refreshToken, nil
}

// SetContextFromToken validates the bearer token and attaches the
// authenticated identity to the context for downstream handlers.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("failed to parse token: %w", err))
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid or expired token"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid_token", fmt.Errorf("invalid user id in token: %w", err))
	}

	var refreshToken string
	if token, err := as.userTokenRepo.GetByAccessToken(ctx, nil, tokenString); err == nil {
		refreshToken = token.RefreshToken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ctx, fmt.Errorf("failed to load token record: %w", err)
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshToken,
		UserID:       userID,
	}), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

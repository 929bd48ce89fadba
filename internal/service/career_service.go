package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/observability"
)

// ErrInvalidCareerToken indicates a career token that is malformed, expired or owned by someone else.
var ErrInvalidCareerToken = errors.New("invalid or expired career token")

// CareerService hands out short-lived signed handles for a submitted career so the
// generation step can run on a later request without any shared server state.
type CareerService interface {
	Issue(ctx context.Context, userID string, req dto.CareerSubmitRequest) (dto.CareerTokenResponse, error)
	Resolve(ctx context.Context, userID, token string) (string, error)
}

type careerClaims struct {
	Career string `json:"career"`
	jwt.RegisteredClaims
}

type careerService struct {
	secret    []byte
	ttl       time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCareerService constructs the career token service.
func NewCareerService(secret string, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) CareerService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &careerService{
		secret:    []byte(secret),
		ttl:       ttl,
		validator: validate,
		logger:    logger.With().Str("component", "career_service").Logger(),
		now:       time.Now,
	}
}

func (s *careerService) Issue(ctx context.Context, userID string, req dto.CareerSubmitRequest) (dto.CareerTokenResponse, error) {
	req.Career = strings.TrimSpace(req.Career)
	if err := s.validator.Struct(req); err != nil {
		observability.CareerTokens().WithLabelValues("issue", "invalid").Inc()
		return dto.CareerTokenResponse{}, err
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)
	claims := careerClaims{
		Career: req.Career,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    middleware.CareerTokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		observability.CareerTokens().WithLabelValues("issue", "error").Inc()
		return dto.CareerTokenResponse{}, err
	}

	observability.CareerTokens().WithLabelValues("issue", "ok").Inc()
	s.logger.Debug().Str("user_id", userID).Time("expires_at", expiresAt).Msg("career token issued")

	return dto.CareerTokenResponse{
		Token:     signed,
		Career:    req.Career,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *careerService) Resolve(ctx context.Context, userID, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		observability.CareerTokens().WithLabelValues("resolve", "invalid").Inc()
		return "", ErrInvalidCareerToken
	}

	var claims careerClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(middleware.CareerTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		observability.CareerTokens().WithLabelValues("resolve", "invalid").Inc()
		s.logger.Debug().Err(err).Msg("career token rejected")
		return "", ErrInvalidCareerToken
	}

	if claims.Subject != userID {
		observability.CareerTokens().WithLabelValues("resolve", "foreign").Inc()
		s.logger.Warn().Str("user_id", userID).Msg("career token presented by a different user")
		return "", ErrInvalidCareerToken
	}

	career := strings.TrimSpace(claims.Career)
	if career == "" {
		observability.CareerTokens().WithLabelValues("resolve", "invalid").Inc()
		return "", ErrInvalidCareerToken
	}

	observability.CareerTokens().WithLabelValues("resolve", "ok").Inc()
	return career, nil
}

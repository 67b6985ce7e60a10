package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/cache"
	"github.com/noah-isme/prezenta-go-api/internal/config"
	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/identity"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/observability"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
)

const (
	displayCodeMin      = 10000
	displayCodeSpan     = 90000
	displayCodeAttempts = 5
	qrImageSize         = 256
)

// IssuedToken is a persisted token together with its short display code.
type IssuedToken struct {
	Record      models.QRToken
	DisplayCode string
}

// SweepResult counts the rows removed by one sweep.
type SweepResult struct {
	Tokens    int64
	Cooldowns int64
}

// QRTokenService manages the rotating attendance codes.
type QRTokenService interface {
	Issue(ctx context.Context, lessonID, classroom string) (IssuedToken, error)
	IssueForSession(ctx context.Context, admin AdminContext, req dto.QRIssueRequest) (dto.QRTokenResponse, error)
	RegistrationQR(ctx context.Context, admin AdminContext) (dto.RegistrationQRResponse, error)
	Resolve(ctx context.Context, candidate string) (models.QRToken, error)
	IsFresh(record models.QRToken, now time.Time) bool
	Sweep(ctx context.Context, now time.Time) SweepResult
}

type qrTokenService struct {
	tokens    repository.QRTokenRepository
	cooldowns repository.CooldownRepository
	cache     cache.TokenCache
	codes     *cache.DisplayCodes
	settings  config.Attendance
	baseURL   string
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewQRTokenService constructs the token manager. The cache and the display
// code index should share the token lifetime as their TTL.
func NewQRTokenService(
	tokens repository.QRTokenRepository,
	cooldowns repository.CooldownRepository,
	tokenCache cache.TokenCache,
	codes *cache.DisplayCodes,
	settings config.Attendance,
	baseURL string,
	validate *validator.Validate,
	logger zerolog.Logger,
) QRTokenService {
	return &qrTokenService{
		tokens:    tokens,
		cooldowns: cooldowns,
		cache:     tokenCache,
		codes:     codes,
		settings:  settings,
		baseURL:   strings.TrimRight(baseURL, "/"),
		validator: validate,
		logger:    logger.With().Str("component", "qr_token_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/prezenta-go-api/internal/service/qr"),
		now:       time.Now,
	}
}

func (s *qrTokenService) Issue(ctx context.Context, lessonID, classroom string) (IssuedToken, error) {
	ctx, span := s.tracer.Start(ctx, "qr.issue")
	defer span.End()

	lessonID = strings.TrimSpace(lessonID)
	classroom = strings.TrimSpace(classroom)
	span.SetAttributes(attribute.String("qr.lesson_id", lessonID), attribute.String("qr.classroom", classroom))

	if _, ok := s.settings.Classroom(classroom); !ok {
		span.SetStatus(codes.Error, "unknown classroom")
		return IssuedToken{}, ErrInvalidClassroom
	}

	token, err := identity.NewSecret(32)
	if err != nil {
		return IssuedToken{}, err
	}

	record := models.QRToken{
		Token:     token,
		LessonID:  lessonID,
		Classroom: classroom,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tokens.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return IssuedToken{}, fmt.Errorf("store qr token: %w", err)
	}
	s.cache.Put(ctx, record)

	code, err := s.assignDisplayCode(record.Token)
	if err != nil {
		span.RecordError(err)
		return IssuedToken{}, err
	}

	observability.RecordTokenIssued(config.ClassroomKey(classroom))
	span.SetStatus(codes.Ok, "issued")

	return IssuedToken{Record: record, DisplayCode: code}, nil
}

func (s *qrTokenService) IssueForSession(ctx context.Context, admin AdminContext, req dto.QRIssueRequest) (dto.QRTokenResponse, error) {
	if err := admin.authorize(); err != nil {
		return dto.QRTokenResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.QRTokenResponse{}, err
	}

	issued, err := s.Issue(ctx, req.LessonID, req.Classroom)
	if err != nil {
		return dto.QRTokenResponse{}, err
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		if sessionID, err = identity.NewSecret(16); err != nil {
			return dto.QRTokenResponse{}, err
		}
	}
	sessionStart := unixSeconds(issued.Record.CreatedAt)
	if req.SessionStartTime != nil {
		sessionStart = *req.SessionStartTime
	}

	verifyURL := fmt.Sprintf("%s/verify/qr/%s", s.baseURL, issued.Record.Token)
	image, err := qrDataURL(verifyURL)
	if err != nil {
		return dto.QRTokenResponse{}, err
	}

	s.logger.Info().
		Str("lesson_id", issued.Record.LessonID).
		Str("classroom", issued.Record.Classroom).
		Str("session_id", sessionID).
		Str("issued_by", admin.Username).
		Msg("qr token issued")

	return dto.QRTokenResponse{
		Token:            issued.Record.Token,
		DisplayCode:      issued.DisplayCode,
		VerifyURL:        verifyURL,
		QRImage:          image,
		ExpiresAt:        unixSeconds(issued.Record.CreatedAt.Add(s.settings.TokenValidity)),
		SessionID:        sessionID,
		SessionStartTime: sessionStart,
		SessionExpiresAt: sessionStart + s.settings.SessionDuration.Seconds(),
		LessonID:         issued.Record.LessonID,
		Classroom:        issued.Record.Classroom,
	}, nil
}

func (s *qrTokenService) RegistrationQR(_ context.Context, admin AdminContext) (dto.RegistrationQRResponse, error) {
	if err := admin.authorize(); err != nil {
		return dto.RegistrationQRResponse{}, err
	}

	url := s.baseURL + "/register"
	image, err := qrDataURL(url)
	if err != nil {
		return dto.RegistrationQRResponse{}, err
	}
	return dto.RegistrationQRResponse{URL: url, QRImage: image}, nil
}

// Resolve tries the literal candidate, then the trimmed candidate, then the
// trimmed candidate as a display code.
func (s *qrTokenService) Resolve(ctx context.Context, candidate string) (models.QRToken, error) {
	ctx, span := s.tracer.Start(ctx, "qr.resolve")
	defer span.End()

	if record, err := s.lookup(ctx, candidate); err == nil || !errors.Is(err, ErrTokenNotFound) {
		return record, err
	}

	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return models.QRToken{}, ErrTokenNotFound
	}
	if trimmed != candidate {
		if record, err := s.lookup(ctx, trimmed); err == nil || !errors.Is(err, ErrTokenNotFound) {
			return record, err
		}
	}

	token, ok := s.codes.Lookup(trimmed)
	if !ok {
		return models.QRToken{}, ErrTokenNotFound
	}
	span.SetAttributes(attribute.Bool("qr.display_code", true))
	return s.lookup(ctx, token)
}

func (s *qrTokenService) lookup(ctx context.Context, token string) (models.QRToken, error) {
	if token == "" {
		return models.QRToken{}, ErrTokenNotFound
	}
	if record, ok := s.cache.Get(ctx, token); ok {
		return record, nil
	}

	record, err := s.tokens.Get(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.QRToken{}, ErrTokenNotFound
		}
		return models.QRToken{}, err
	}
	s.cache.Put(ctx, record)
	return record, nil
}

func (s *qrTokenService) IsFresh(record models.QRToken, now time.Time) bool {
	return now.Sub(record.CreatedAt) <= s.settings.TokenLifetime()
}

// Sweep removes tokens past their grace period and cooldowns past their
// window. Only rows strictly older than the cutoff are removed.
func (s *qrTokenService) Sweep(ctx context.Context, now time.Time) SweepResult {
	var result SweepResult

	tokenCutoff := now.Add(-(s.settings.TokenValidity + s.settings.TokenGrace)).UTC()
	deleted, err := s.tokens.DeleteOlderThan(ctx, tokenCutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sweep expired qr tokens")
	} else {
		result.Tokens = deleted
		observability.RecordSweep("qr_tokens", deleted)
	}

	cooldownCutoff := now.Add(-s.settings.DeviceCooldown).UTC()
	deleted, err = s.cooldowns.DeleteOlderThan(ctx, cooldownCutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sweep device cooldowns")
	} else {
		result.Cooldowns = deleted
		observability.RecordSweep("device_cooldowns", deleted)
	}

	return result
}

func (s *qrTokenService) assignDisplayCode(token string) (string, error) {
	var code string
	for attempt := 0; attempt < displayCodeAttempts; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(displayCodeSpan))
		if err != nil {
			return "", fmt.Errorf("generate display code: %w", err)
		}
		code = strconv.FormatInt(n.Int64()+displayCodeMin, 10)
		if _, taken := s.codes.Lookup(code); !taken {
			break
		}
	}
	s.codes.Put(code, token)
	return code, nil
}

func qrDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

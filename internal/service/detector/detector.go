// Package detector turns a submitted text into a verdict using the remote AI writer detector
package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/aicheck/internal/apperrors"
	"github.com/nkiryanov/aicheck/internal/logger"
	"github.com/nkiryanov/aicheck/internal/metrics"
	"github.com/nkiryanov/aicheck/internal/models"
	"github.com/nkiryanov/aicheck/internal/service/copyleaks"
)

// Scores strictly above the threshold mean AI-generated text
var aiThreshold = decimal.RequireFromString("0.5")

type scanClient interface {
	Check(ctx context.Context, token string, req models.ScanRequest) (models.ScanResult, error)
}

type tokenSource interface {
	Token(ctx context.Context) (models.Credential, error)
	Invalidate()
}

type Config struct {
	// Send scans in sandbox mode: the detector answers with mocked results and credits are not consumed
	Sandbox bool
}

type Service struct {
	sandbox bool

	client   scanClient
	tokens   tokenSource
	validate *validator.Validate
	logger   logger.Logger
	metrics  *metrics.Metrics
}

func NewService(cfg Config, client scanClient, tokens tokenSource, l logger.Logger, m *metrics.Metrics) *Service {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		sandbox:  cfg.Sandbox,
		client:   client,
		tokens:   tokens,
		validate: validator.New(),
		logger:   l.With("component", "detector"),
		metrics:  m,
	}
}

// Classify checks whether text looks AI-generated
// It never fails: every failure is a verdict of its own kind
func (s *Service) Classify(ctx context.Context, text string) models.Verdict {
	req := models.ScanRequest{ScanID: uuid.New(), Text: text, Sandbox: s.sandbox}

	if err := s.validate.Struct(req); err != nil {
		s.metrics.ObserveScan(string(models.VerdictTooShort), 0)
		return models.Verdict{Kind: models.VerdictTooShort, ScanID: req.ScanID, Err: apperrors.ErrTextTooShort}
	}

	start := time.Now()
	v := s.scan(ctx, req)
	s.metrics.ObserveScan(string(v.Kind), time.Since(start))

	if v.Err != nil {
		s.logger.Warn("Check failed", "scan_id", v.ScanID, "verdict", v.Kind, "error", v.Err)
	} else {
		s.logger.Info("Check done", "scan_id", v.ScanID, "verdict", v.Kind, "score", v.Score)
	}

	return v
}

func (s *Service) scan(ctx context.Context, req models.ScanRequest) models.Verdict {
	v := models.Verdict{ScanID: req.ScanID}

	credential, err := s.tokens.Token(ctx)
	if err != nil {
		v.Kind, v.Err = models.VerdictUnauthorized, err
		return v
	}

	result, err := s.client.Check(ctx, credential.AccessToken, req)
	if err != nil {
		var clErr *copyleaks.Error
		if errors.As(err, &clErr) && clErr.Code == copyleaks.CodeUnauthorized {
			// Token was revoked before its expiry; next check logs in again
			s.tokens.Invalidate()
			v.Kind, v.Err = models.VerdictUnauthorized, err
			return v
		}

		v.Kind, v.Err = models.VerdictUnexpected, err
		return v
	}

	return interpret(v, result)
}

// interpret maps the detector answer to a verdict
// Credits error wins over scores present in the same answer
func interpret(v models.Verdict, result models.ScanResult) models.Verdict {
	switch {
	case result.ErrorCode == copyleaks.ErrorCodeNotEnoughCredits:
		v.Kind, v.Err = models.VerdictNotEnoughCredits, apperrors.ErrNotEnoughCredits
	case result.Summary != nil:
		v.Score = result.Summary.AI
		if result.Summary.AI.GreaterThan(aiThreshold) {
			v.Kind = models.VerdictAI
		} else {
			v.Kind = models.VerdictHuman
		}
	case result.ErrorCode != "":
		v.Kind, v.Err = models.VerdictUnknownResponse, fmt.Errorf("%w: error code %q", apperrors.ErrUnknownResponse, result.ErrorCode)
	default:
		v.Kind, v.Err = models.VerdictUnknownResponse, apperrors.ErrUnknownResponse
	}

	return v
}

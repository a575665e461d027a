package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/pkg/logger"
)

// Service writes an append-only audit trail, one JSON record per mutating
// operation.
type Service struct {
	logger *zap.Logger
}

type LogOptions struct {
	Metadata map[string]interface{}
	Outcome  string
}

// NewService builds a JSON audit logger writing to output, which may be
// "stdout", "stderr" or a file path.
func NewService(output string) (*Service, error) {
	if output == "" {
		output = "stdout"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.MessageKey = "action"

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding:         "json",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit logger: %w", err)
	}
	return NewServiceWithLogger(l.Named("audit")), nil
}

func NewServiceWithLogger(l *zap.Logger) *Service {
	return &Service{logger: l}
}

// Log records that actor performed action on an entity. actor may be nil for
// anonymous operations such as registration.
func (s *Service) Log(ctx context.Context, actor *model.Session, action, entityType string, entityID int64, opts *LogOptions) {
	fields := []zap.Field{
		zap.String("entity_type", entityType),
	}
	if entityID != 0 {
		fields = append(fields, zap.Int64("entity_id", entityID))
	}
	if actor != nil {
		fields = append(fields,
			zap.String("actor_email", actor.Email),
			zap.String("actor_name", actor.Name),
			zap.String("actor_role", actor.Role.String()),
		)
	}
	if rid := logger.RequestIDFromContext(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}

	outcome := "success"
	if opts != nil {
		if opts.Outcome != "" {
			outcome = opts.Outcome
		}
		if len(opts.Metadata) > 0 {
			fields = append(fields, zap.Any("metadata", opts.Metadata))
		}
	}
	fields = append(fields, zap.String("outcome", outcome))

	s.logger.Info(action, fields...)
}

// Close flushes buffered records.
func (s *Service) Close() error {
	return s.logger.Sync()
}

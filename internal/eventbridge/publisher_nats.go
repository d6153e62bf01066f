package eventbridge

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// natsPublisher adapts a watermill NATS publisher to Publisher.
type natsPublisher struct {
	inner message.Publisher
}

// NewNatsPublisher opens a watermill/NATS publisher against url.
func NewNatsPublisher(url string, logger *zap.Logger) (Publisher, error) {
	inner, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:       url,
		Marshaler: &wmnats.GobMarshaler{},
	}, newZapLoggerAdapter(logger))
	if err != nil {
		return nil, fmt.Errorf("opening nats publisher: %w", err)
	}
	return &natsPublisher{inner: inner}, nil
}

func (p *natsPublisher) Publish(subject string, payload []byte) error {
	msg := message.NewMessage(uuid.NewString(), payload)
	return p.inner.Publish(subject, msg)
}

func (p *natsPublisher) Close() error {
	return p.inner.Close()
}

// zapLoggerAdapter implements watermill.LoggerAdapter over a zap.Logger,
// the shape watermill's own constructors all accept.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func newZapLoggerAdapter(logger *zap.Logger) *zapLoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapLoggerAdapter{logger: logger}
}

func (a *zapLoggerAdapter) fields(f watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (a *zapLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(a.fields(fields), zap.Error(err))...)
}

func (a *zapLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, a.fields(fields)...)
}

func (a *zapLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, a.fields(fields)...)
}

func (a *zapLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, a.fields(fields)...)
}

func (a *zapLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapLoggerAdapter{logger: a.logger.With(a.fields(fields)...)}
}

package pipeline

import (
	"context"
	"log/slog"

	"laptopprice/pkg/artifact"
)

// Pusher publishes an accepted bundle as the production model.
type Pusher struct {
	registry *artifact.Registry
	log      *slog.Logger
}

func NewPusher(registry *artifact.Registry, log *slog.Logger) *Pusher {
	return &Pusher{registry: registry, log: log}
}

func (s *Pusher) Run(ctx context.Context, b *artifact.Bundle) (*PushArtifact, error) {
	ptr, err := s.registry.Publish(ctx, b)
	if err != nil {
		return nil, fail(KindStorage, StagePush, err, "version", b.Version)
	}
	return &PushArtifact{Pointer: ptr}, nil
}

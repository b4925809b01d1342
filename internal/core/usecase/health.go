package usecase

import (
	"context"

	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

type HealthUseCase struct {
	store     ports.ChunkStore
	generator ports.Generator
}

func NewHealthUseCase(store ports.ChunkStore, generator ports.Generator) *HealthUseCase {
	return &HealthUseCase{store: store, generator: generator}
}

func (uc *HealthUseCase) CheckStore(ctx context.Context) error {
	return uc.store.Ping(ctx)
}

func (uc *HealthUseCase) CheckGenerator(ctx context.Context) error {
	return uc.generator.Ping(ctx)
}

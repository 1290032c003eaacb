package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/core/ports"
)

const defaultPredictionListLimit = 50

var errAuthRequired = errors.New("must be authenticated to create predictions")

type PredictionUseCase struct {
	repo ports.PredictionRepository
	now  func() time.Time
}

func NewPredictionUseCase(repo ports.PredictionRepository) *PredictionUseCase {
	return &PredictionUseCase{repo: repo, now: time.Now}
}

func (uc *PredictionUseCase) Create(ctx context.Context, identity string, p domain.Prediction) (string, error) {
	if identity == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "create prediction", errAuthRequired)
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	uc.stamp(&p, identity)
	if err := uc.repo.Insert(ctx, &p); err != nil {
		return "", fmt.Errorf("insert prediction: %w", err)
	}
	return p.ID, nil
}

// BatchCreate validates every row up front, then inserts rows independently.
// On a mid-batch failure the IDs stored so far are returned with the error.
func (uc *PredictionUseCase) BatchCreate(ctx context.Context, identity string, ps []domain.Prediction) ([]string, error) {
	if identity == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "batch create predictions", errAuthRequired)
	}
	rows := make([]domain.Prediction, len(ps))
	for i, p := range ps {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		uc.stamp(&p, identity)
		rows[i] = p
	}
	if len(rows) == 0 {
		return []string{}, nil
	}

	ids, err := uc.repo.InsertMany(ctx, rows)
	if err != nil {
		return ids, fmt.Errorf("insert predictions: %w", err)
	}
	return ids, nil
}

// List returns the identity's newest predictions; anonymous callers get an empty list.
func (uc *PredictionUseCase) List(ctx context.Context, identity string, limit int) ([]domain.Prediction, error) {
	if identity == "" {
		return []domain.Prediction{}, nil
	}
	if limit <= 0 {
		limit = defaultPredictionListLimit
	}
	out, err := uc.repo.ListByUser(ctx, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return out, nil
}

func (uc *PredictionUseCase) stamp(p *domain.Prediction, identity string) {
	p.ID = uuid.NewString()
	p.UserID = identity
	p.CreatedAt = uc.now().UTC()
}

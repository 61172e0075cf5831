package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AhmedB2023/ecommerce-backend/internal/apperrors"
	"github.com/AhmedB2023/ecommerce-backend/internal/domain"
	"github.com/AhmedB2023/ecommerce-backend/internal/repository"
)

// maxAvailabilityDays bounds a single day listing.
const maxAvailabilityDays = 366

type AvailabilityService struct {
	properties repository.PropertyRepository
	log        *slog.Logger
}

func NewAvailabilityService(properties repository.PropertyRepository, log *slog.Logger) *AvailabilityService {
	return &AvailabilityService{
		properties: properties,
		log:        log,
	}
}

// SetRange replaces the property's bookable window. A nil to leaves it
// open-ended.
func (s *AvailabilityService) SetRange(ctx context.Context, propertyID int64, from time.Time, to *time.Time, available bool, note string) (*domain.AvailabilityRange, error) {
	const op = "internal.service.AvailabilityService.SetRange"

	if to != nil && to.Before(from) {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "end_date", Rule: "gtefield"})
	}

	rng := &domain.AvailabilityRange{
		PropertyID:  propertyID,
		StartDate:   from,
		EndDate:     to,
		IsAvailable: available,
		Note:        optional(note),
	}

	if err := s.properties.UpsertAvailability(ctx, rng); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("availability updated",
		slog.String("op", op),
		slog.Int64("property_id", propertyID),
		slog.Bool("available", available),
	)

	return rng, nil
}

func (s *AvailabilityService) Days(ctx context.Context, propertyID int64, from, to time.Time) ([]domain.DayAvailability, error) {
	const op = "internal.service.AvailabilityService.Days"

	if to.Before(from) {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "to", Rule: "gtefield"})
	}
	if to.Sub(from) > maxAvailabilityDays*24*time.Hour {
		return nil, fmt.Errorf("%s: %w", op, &apperrors.ValidationError{Field: "to", Rule: "max"})
	}

	if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	days, err := s.properties.DayAvailability(ctx, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return days, nil
}

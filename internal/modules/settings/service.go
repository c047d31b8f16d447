package settings

import (
	"github.com/rs/zerolog"
)

// Service resolves effective setting values, layering per-owner overrides on
// top of the process-level defaults.
type Service struct {
	repo             *Repository
	defaultThreshold float64
	log              zerolog.Logger
}

// NewService creates a new settings service
func NewService(repo *Repository, defaultAlertThreshold float64, log zerolog.Logger) *Service {
	return &Service{
		repo:             repo,
		defaultThreshold: defaultAlertThreshold,
		log:              log.With().Str("service", "settings").Logger(),
	}
}

// AlertThreshold returns the owner's day-change alert threshold in percent.
// Falls back to the global default when the owner has no override or the
// lookup fails; alerting must never abort a sync pass.
func (s *Service) AlertThreshold(ownerID string) float64 {
	v, err := s.repo.GetFloat(ownerID, AlertThresholdKey, s.defaultThreshold)
	if err != nil {
		s.log.Warn().Err(err).Str("owner_id", ownerID).Msg("Failed to read alert threshold, using default")
		return s.defaultThreshold
	}
	return v
}

// SetAlertThreshold stores an owner's alert threshold override.
func (s *Service) SetAlertThreshold(ownerID string, threshold float64) error {
	return s.repo.SetFloat(ownerID, AlertThresholdKey, threshold)
}

// Get returns one raw setting value, or nil.
func (s *Service) Get(ownerID, key string) (*string, error) {
	return s.repo.Get(ownerID, key)
}

// Set stores one raw setting value.
func (s *Service) Set(ownerID, key, value string) error {
	return s.repo.Set(ownerID, key, value)
}

// GetAll returns all of an owner's settings.
func (s *Service) GetAll(ownerID string) (map[string]string, error) {
	return s.repo.GetAll(ownerID)
}

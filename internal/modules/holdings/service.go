package holdings

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/domain"
)

// Service provides the owner-facing holding operations with validation.
// Price fields are never writable through this service - they belong to the
// sync engine.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new holdings service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "holdings").Logger(),
	}
}

// CreateInput carries the owner-supplied fields for a new holding.
type CreateInput struct {
	OwnerID        string            `json:"owner_id"`
	AssetClass     domain.AssetClass `json:"asset_class"`
	Symbol         string            `json:"symbol"`
	Quantity       float64           `json:"quantity"`
	CostBasisPrice float64           `json:"cost_basis_price"`
	DisplayName    *string           `json:"display_name,omitempty"`
}

// UpdateInput carries the owner-mutable fields for an existing holding.
type UpdateInput struct {
	Symbol         *string  `json:"symbol,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	CostBasisPrice *float64 `json:"cost_basis_price,omitempty"`
	DisplayName    *string  `json:"display_name,omitempty"`
}

// Create validates and stores a new holding.
func (s *Service) Create(input CreateInput) (*domain.Holding, error) {
	if input.OwnerID == "" {
		return nil, fmt.Errorf("owner_id is required")
	}
	if !input.AssetClass.Valid() {
		return nil, fmt.Errorf("asset_class must be 'equity' or 'crypto', got %q", input.AssetClass)
	}
	if input.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be > 0, got %f", input.Quantity)
	}
	if input.CostBasisPrice <= 0 {
		return nil, fmt.Errorf("cost_basis_price must be > 0, got %f", input.CostBasisPrice)
	}

	h := &domain.Holding{
		OwnerID:        input.OwnerID,
		AssetClass:     input.AssetClass,
		Symbol:         input.Symbol,
		Quantity:       input.Quantity,
		CostBasisPrice: input.CostBasisPrice,
		DisplayName:    input.DisplayName,
	}

	if err := s.repo.Create(h); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("holding_id", h.ID).
		Str("owner_id", h.OwnerID).
		Str("symbol", h.Symbol).
		Str("asset_class", string(h.AssetClass)).
		Msg("Holding created")

	return h, nil
}

// Update applies owner edits to a holding. Returns nil if the holding does
// not exist or belongs to a different owner.
func (s *Service) Update(ownerID, id string, input UpdateInput) (*domain.Holding, error) {
	h, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if h == nil || h.OwnerID != ownerID {
		return nil, nil
	}

	if input.Symbol != nil {
		if *input.Symbol == "" {
			return nil, fmt.Errorf("symbol cannot be empty")
		}
		h.Symbol = *input.Symbol
	}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be > 0, got %f", *input.Quantity)
		}
		h.Quantity = *input.Quantity
	}
	if input.CostBasisPrice != nil {
		if *input.CostBasisPrice <= 0 {
			return nil, fmt.Errorf("cost_basis_price must be > 0, got %f", *input.CostBasisPrice)
		}
		h.CostBasisPrice = *input.CostBasisPrice
	}
	if input.DisplayName != nil {
		h.DisplayName = input.DisplayName
	}

	if err := s.repo.Update(h); err != nil {
		return nil, err
	}

	return h, nil
}

// Delete removes an owner's holding. Returns false if it does not exist or
// belongs to a different owner.
func (s *Service) Delete(ownerID, id string) (bool, error) {
	h, err := s.repo.GetByID(id)
	if err != nil {
		return false, err
	}
	if h == nil || h.OwnerID != ownerID {
		return false, nil
	}

	if err := s.repo.Delete(id); err != nil {
		return false, err
	}

	s.log.Info().Str("holding_id", id).Str("owner_id", ownerID).Msg("Holding deleted")
	return true, nil
}

// List returns all holdings for one owner.
func (s *Service) List(ownerID string) ([]domain.Holding, error) {
	return s.repo.GetByOwner(ownerID)
}

// Get returns one holding scoped to its owner, or nil.
func (s *Service) Get(ownerID, id string) (*domain.Holding, error) {
	h, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if h == nil || h.OwnerID != ownerID {
		return nil, nil
	}
	return h, nil
}

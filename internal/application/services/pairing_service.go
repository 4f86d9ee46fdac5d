package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
	"github.com/pairbook/core/internal/ports"
)

// PairingService handles the pairing lifecycle: creating a space, joining
// by code, and membership lookups.
type PairingService struct {
	pairings ports.PairingRepository
	logger   *logger.Logger
}

// NewPairingService creates a new pairing service.
func NewPairingService(pairings ports.PairingRepository, logger *logger.Logger) *PairingService {
	return &PairingService{
		pairings: pairings,
		logger:   logger,
	}
}

const pairingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const pairingCodeLength = 6

func newPairingCode() string {
	var b strings.Builder
	for i := 0; i < pairingCodeLength; i++ {
		b.WriteByte(pairingCodeAlphabet[rand.Intn(len(pairingCodeAlphabet))])
	}
	return b.String()
}

// Create opens a new pairing space with the given user as its first
// member and a fresh join code for the partner.
func (s *PairingService) Create(ctx context.Context, userID string) (*entities.Pairing, error) {
	code := newPairingCode()
	pairing := &entities.Pairing{
		ID:          uuid.New().String(),
		Members:     []string{userID},
		PairingCode: &code,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.pairings.Create(ctx, pairing); err != nil {
		return nil, fmt.Errorf("create pairing: %w", err)
	}

	s.logger.Info("Pairing created", "pairing_id", pairing.ID, "user_id", userID)

	return pairing, nil
}

// Join adds the user to the pairing matching the join code. Once the
// second member arrives the code is retired. Joining a pairing the user
// already belongs to succeeds without changing anything.
func (s *PairingService) Join(ctx context.Context, userID, code string) (*entities.Pairing, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, entities.ErrInvalidPairingCode
	}

	pairing, err := s.pairings.FindByCode(ctx, code)
	if err == entities.ErrPairingNotFound {
		return nil, entities.ErrInvalidPairingCode
	}
	if err != nil {
		return nil, fmt.Errorf("join pairing: %w", err)
	}

	if pairing.HasMember(userID) {
		return pairing, nil
	}

	if err := pairing.AddMember(userID); err != nil {
		return nil, err
	}

	if err := s.pairings.SetMembership(ctx, pairing.ID, pairing.Members, pairing.PairingCode); err != nil {
		return nil, fmt.Errorf("join pairing: %w", err)
	}

	s.logger.Info("Pairing joined", "pairing_id", pairing.ID, "user_id", userID)

	return pairing, nil
}

// Get retrieves a pairing by id.
func (s *PairingService) Get(ctx context.Context, id string) (*entities.Pairing, error) {
	pairing, err := s.pairings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pairing, nil
}

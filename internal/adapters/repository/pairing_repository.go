package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/ports"
)

// PairingRepositoryImpl implements the PairingRepository interface over a
// document store.
type PairingRepositoryImpl struct {
	store ports.DocStore
}

// NewPairingRepository creates a new pairing repository.
func NewPairingRepository(store ports.DocStore) ports.PairingRepository {
	return &PairingRepositoryImpl{store: store}
}

func (r *PairingRepositoryImpl) Create(ctx context.Context, pairing *entities.Pairing) error {
	id := pairing.ID
	pairing.ID = ""
	err := r.store.Set(ctx, pairingsCollection, id, pairing)
	pairing.ID = id
	if err != nil {
		return fmt.Errorf("create pairing: %w", err)
	}
	return nil
}

func (r *PairingRepositoryImpl) Get(ctx context.Context, id string) (*entities.Pairing, error) {
	data, err := r.store.Get(ctx, pairingsCollection, id)
	if err == entities.ErrDocumentNotFound {
		return nil, entities.ErrPairingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pairing: %w", err)
	}

	var pairing entities.Pairing
	if err := json.Unmarshal(data, &pairing); err != nil {
		return nil, fmt.Errorf("unmarshal pairing: %w", err)
	}
	pairing.ID = id
	return &pairing, nil
}

func (r *PairingRepositoryImpl) FindByCode(ctx context.Context, code string) (*entities.Pairing, error) {
	records, err := r.store.Query(ctx, pairingsCollection, ports.Query{
		Field:  "pairingCode",
		Equals: code,
	})
	if err != nil {
		return nil, fmt.Errorf("find pairing by code: %w", err)
	}
	if len(records) == 0 {
		return nil, entities.ErrPairingNotFound
	}

	var pairing entities.Pairing
	if err := json.Unmarshal(records[0].Data, &pairing); err != nil {
		return nil, fmt.Errorf("unmarshal pairing: %w", err)
	}
	pairing.ID = records[0].Key
	return &pairing, nil
}

func (r *PairingRepositoryImpl) SetMembership(ctx context.Context, id string, members []string, code *string) error {
	err := r.store.Update(ctx, pairingsCollection, id, map[string]any{
		"members":     members,
		"pairingCode": code,
	})
	if err == entities.ErrDocumentNotFound {
		return entities.ErrPairingNotFound
	}
	if err != nil {
		return fmt.Errorf("set pairing membership: %w", err)
	}
	return nil
}

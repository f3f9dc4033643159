package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// StoreRepository lists and registers retailers.
type StoreRepository interface {
	ListActive(ctx context.Context) ([]entity.Store, error)
	Create(ctx context.Context, store entity.Store) (entity.Store, error)
}

// UserRepository registers users under an anonymized ID used by basket snapshots.
type UserRepository interface {
	Register(ctx context.Context, userID uuid.UUID) (string, error)
}

type storeRepository struct {
	db     DB
	logger *slog.Logger
}

func NewStoreRepository(db DB, logger *slog.Logger) StoreRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &storeRepository{db: db, logger: logger}
}

func (r *storeRepository) ListActive(ctx context.Context) ([]entity.Store, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, chain, location, is_active
		FROM stores WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, classify("list stores", err)
	}
	defer rows.Close()

	stores := make([]entity.Store, 0)
	for rows.Next() {
		var s entity.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Chain, &s.Location, &s.Active); err != nil {
			return nil, classify("scan store", err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate stores", err)
	}
	return stores, nil
}

func (r *storeRepository) Create(ctx context.Context, store entity.Store) (entity.Store, error) {
	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO stores (id, name, chain, location, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, chain = EXCLUDED.chain,
			location = EXCLUDED.location, is_active = EXCLUDED.is_active`,
		store.ID, store.Name, store.Chain, store.Location, store.Active)
	if err != nil {
		return entity.Store{}, classify("create store", err)
	}
	r.logger.Info("repository.store.create.ok", "store_id", store.ID, "name", store.Name)
	return store, nil
}

type userRepository struct {
	db     DB
	logger *slog.Logger
}

func NewUserRepository(db DB, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepository{db: db, logger: logger}
}

// Register returns the user's anonymized ID, creating the user when absent.
func (r *userRepository) Register(ctx context.Context, userID uuid.UUID) (string, error) {
	var anonymizedID string
	err := r.db.QueryRow(ctx, `INSERT INTO users (id, anonymized_id) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING anonymized_id`, userID, uuid.NewString()).Scan(&anonymizedID)
	if err != nil {
		return "", classify("register user", err)
	}
	return anonymizedID, nil
}

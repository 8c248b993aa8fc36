package repository

import (
	"context"
	"errors"
	"fmt"

	"cinema-seat-booking/internal/data/entity"
	"cinema-seat-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error)
}

type customerRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewCustomerRepository(db database.Querier, log *zap.Logger) CustomerRepository {
	return &customerRepository{
		db:  db,
		log: log.With(zap.String("repository", "customer")),
	}
}

func (r *customerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	query := `INSERT INTO customers (id, name, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, customer.ID, customer.Name, customer.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create customer", zap.Error(err))
		return fmt.Errorf("create customer %s: %w", customer.ID.String(), classify(err))
	}

	return nil
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	query := `SELECT id, name, created_at FROM customers WHERE id = $1`

	var customer entity.Customer
	err := r.db.QueryRow(ctx, query, id).Scan(&customer.ID, &customer.Name, &customer.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find customer by ID",
			zap.Error(err),
			zap.String("customer_id", id.String()),
		)
		return nil, fmt.Errorf("find customer by ID %s: %w", id.String(), err)
	}

	return &customer, nil
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// HealthRepository storage liveness
type HealthRepository interface {
	Ping(ctx context.Context) error
}

type healthRepo struct {
	db *gorm.DB
}

// NewHealthRepo creates a HealthRepository.
func NewHealthRepo(db *gorm.DB) HealthRepository {
	return &healthRepo{db: db}
}

func (r *healthRepo) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("no database handle")
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

package operator

import (
	"context"
	"database/sql"
	"errors"

	"sales-routing-backend/internal/model"

	"github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, op model.OperatorItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operators (email, operator_id, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		op.Email, op.OperatorID, op.Name, op.PasswordHash, op.CreatedAt)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return ErrAlreadyExists
	}
	return err
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (model.OperatorItem, error) {
	var op model.OperatorItem
	err := r.db.QueryRowContext(ctx,
		`SELECT email, operator_id, name, password_hash, created_at FROM operators WHERE email = ?`, email).
		Scan(&op.Email, &op.OperatorID, &op.Name, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OperatorItem{}, ErrNotFound
	}
	return op, err
}

func (r *SQLiteRepository) List(ctx context.Context) ([]model.OperatorItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, operator_id, name, password_hash, created_at FROM operators ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []model.OperatorItem
	for rows.Next() {
		var op model.OperatorItem
		if err := rows.Scan(&op.Email, &op.OperatorID, &op.Name, &op.PasswordHash, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

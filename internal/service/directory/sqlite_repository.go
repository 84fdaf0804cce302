package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sales-routing-backend/internal/model"

	"github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements Repository over the schema in database.SQLiteSchema.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sellerColumns = `id, display_name, contact_handle, specialty, status, active, max_clients, current_clients, rating, work_start, work_end, days_off, notification_interval, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeller(row rowScanner) (model.SellerItem, error) {
	var (
		s         model.SellerItem
		status    string
		active    int
		workStart sql.NullString
		workEnd   sql.NullString
		daysOff   sql.NullString
	)
	err := row.Scan(&s.SellerID, &s.DisplayName, &s.ContactHandle, &s.Specialty, &status, &active,
		&s.MaxClients, &s.CurrentClients, &s.Rating, &workStart, &workEnd, &daysOff,
		&s.NotificationIntervalMinutes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.SellerItem{}, err
	}
	s.Status = model.SellerStatus(status)
	s.Active = active == 1
	s.WorkStart = workStart.String
	s.WorkEnd = workEnd.String
	if daysOff.Valid && daysOff.String != "" {
		if err := json.Unmarshal([]byte(daysOff.String), &s.DaysOff); err != nil {
			return model.SellerItem{}, fmt.Errorf("decode days off for %s: %w", s.SellerID, err)
		}
	}
	return s, nil
}

func encodeDaysOff(days []model.DayOff) (sql.NullString, error) {
	if len(days) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(days)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode days off: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (r *SQLiteRepository) GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sellerColumns+` FROM sellers WHERE id = ?`, sellerID)
	seller, err := scanSeller(row)
	if err == sql.ErrNoRows {
		return model.SellerItem{}, ErrNotFound
	}
	if err != nil {
		return model.SellerItem{}, fmt.Errorf("failed to get seller: %w", err)
	}
	return seller, nil
}

func (r *SQLiteRepository) ListSellers(ctx context.Context, filter Filter) ([]model.SellerItem, error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers WHERE 1=1`
	args := []any{}

	if filter.ActiveOnly {
		query += " AND active = 1"
	}
	if filter.Specialty != "" {
		query += " AND lower(trim(specialty)) = ?"
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Specialty)))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	defer rows.Close()

	var sellers []model.SellerItem
	for rows.Next() {
		seller, err := scanSeller(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		sellers = append(sellers, seller)
	}
	return sellers, rows.Err()
}

func (r *SQLiteRepository) CreateSeller(ctx context.Context, seller model.SellerItem) error {
	daysOff, err := encodeDaysOff(seller.DaysOff)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sellers (`+sellerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seller.SellerID,
		seller.DisplayName,
		seller.ContactHandle,
		seller.Specialty,
		string(seller.Status),
		boolInt(seller.Active),
		seller.MaxClients,
		seller.CurrentClients,
		seller.Rating,
		sql.NullString{String: seller.WorkStart, Valid: seller.WorkStart != ""},
		sql.NullString{String: seller.WorkEnd, Valid: seller.WorkEnd != ""},
		daysOff,
		seller.NotificationIntervalMinutes,
		seller.CreatedAt,
		seller.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create seller: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateSeller(ctx context.Context, sellerID string, update SellerUpdate) (model.SellerItem, error) {
	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.DisplayName != nil {
		add("display_name", *update.DisplayName)
	}
	if update.ContactHandle != nil {
		add("contact_handle", *update.ContactHandle)
	}
	if update.Specialty != nil {
		add("specialty", *update.Specialty)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.Active != nil {
		add("active", boolInt(*update.Active))
	}
	if update.MaxClients != nil {
		add("max_clients", *update.MaxClients)
	}
	if update.CurrentClients != nil {
		add("current_clients", *update.CurrentClients)
	}
	if update.Rating != nil {
		add("rating", *update.Rating)
	}
	if update.WorkStart != nil {
		add("work_start", *update.WorkStart)
	}
	if update.WorkEnd != nil {
		add("work_end", *update.WorkEnd)
	}
	if update.DaysOff != nil {
		daysOff, err := encodeDaysOff(*update.DaysOff)
		if err != nil {
			return model.SellerItem{}, err
		}
		add("days_off", daysOff)
	}
	if update.NotificationIntervalMinutes != nil {
		add("notification_interval", *update.NotificationIntervalMinutes)
	}
	if !update.UpdatedAt.IsZero() {
		add("updated_at", update.UpdatedAt.UTC().Format(time.RFC3339))
	}
	if len(sets) == 0 {
		return r.GetSeller(ctx, sellerID)
	}

	args = append(args, sellerID)
	res, err := r.db.ExecContext(ctx, `UPDATE sellers SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return model.SellerItem{}, fmt.Errorf("failed to update seller: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.SellerItem{}, ErrNotFound
	}
	return r.GetSeller(ctx, sellerID)
}

func (r *SQLiteRepository) DeleteSeller(ctx context.Context, sellerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sellers WHERE id = ?`, sellerID)
	if err != nil {
		return fmt.Errorf("failed to delete seller: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) IncrementClients(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`UPDATE sellers SET current_clients = current_clients + 1 WHERE id = ? RETURNING current_clients`,
		sellerID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment clients: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) DecrementClients(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`UPDATE sellers SET current_clients = current_clients - 1 WHERE id = ? AND current_clients > 0 RETURNING current_clients`,
		sellerID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		if _, getErr := r.GetSeller(ctx, sellerID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrCounterAtFloor
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement clients: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) SaveAssignment(ctx context.Context, assignment model.AssignmentItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assignments (conversation_id, seller_id, status, assigned_at) VALUES (?, ?, ?, ?)`,
		assignment.ConversationID,
		assignment.SellerID,
		string(model.AssignmentStatusActive),
		assignment.AssignedAt,
	)
	if isUniqueViolation(err) {
		return ErrActiveAssignmentExists
	}
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CompleteAssignment(ctx context.Context, conversationID string, completedAt time.Time) (model.AssignmentItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.AssignmentItem{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		id          int64
		assignment  model.AssignmentItem
		status      string
		completedTS sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, conversation_id, seller_id, status, assigned_at, completed_at FROM assignments
		 WHERE conversation_id = ? ORDER BY id DESC LIMIT 1`,
		conversationID,
	).Scan(&id, &assignment.ConversationID, &assignment.SellerID, &status, &assignment.AssignedAt, &completedTS)
	if err == sql.ErrNoRows {
		return model.AssignmentItem{}, ErrNotFound
	}
	if err != nil {
		return model.AssignmentItem{}, fmt.Errorf("failed to get assignment: %w", err)
	}
	assignment.Status = model.AssignmentStatus(status)
	assignment.CompletedAt = completedTS.String
	if assignment.Status != model.AssignmentStatusActive {
		return assignment, ErrAlreadyCompleted
	}

	assignment.Status = model.AssignmentStatusCompleted
	assignment.CompletedAt = completedAt.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`UPDATE assignments SET status = ?, completed_at = ? WHERE id = ?`,
		string(assignment.Status), assignment.CompletedAt, id,
	); err != nil {
		return model.AssignmentItem{}, fmt.Errorf("failed to complete assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.AssignmentItem{}, fmt.Errorf("failed to commit assignment completion: %w", err)
	}
	return assignment, nil
}

func (r *SQLiteRepository) FindActiveAssignments(ctx context.Context) ([]model.AssignmentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT conversation_id, seller_id, status, assigned_at FROM assignments WHERE status = ? ORDER BY id`,
		string(model.AssignmentStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.AssignmentItem
	for rows.Next() {
		var a model.AssignmentItem
		var status string
		if err := rows.Scan(&a.ConversationID, &a.SellerID, &status, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Status = model.AssignmentStatus(status)
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// CountAssignments returns how many assignment rows, active or retired, a conversation has.
func (r *SQLiteRepository) CountAssignments(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments WHERE conversation_id = ?`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return n, nil
}

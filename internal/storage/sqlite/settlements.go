package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/money"
	"github.com/splitpot/splitpot/internal/storage"
)

// CreateSettlement persists a new settlement record.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = now
	}
	if settlement.UpdatedAt == 0 {
		settlement.UpdatedAt = settlement.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, payer_id, receiver_id, amount, status,
		                          payer_confirmed_at, receiver_confirmed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.PayerID, settlement.ReceiverID,
		int64(settlement.Amount), settlement.Status, settlement.PayerConfirmedAt,
		nullIfZero(settlement.ReceiverConfirmedAt), settlement.CreatedAt, settlement.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, id string) (*models.Settlement, error) {
	settlement, err := scanSettlement(s.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_id, receiver_id, amount, status,
		        payer_confirmed_at, receiver_confirmed_at, created_at, updated_at
		 FROM settlements WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: settlement %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// CompleteSettlement transitions a settlement from payer_confirmed to
// complete, stamping the receiver confirmation time. The guard on the prior
// status makes the transition a compare-and-swap: a concurrent or repeated
// confirm finds zero rows updated and gets storage.ErrConflict.
func (s *SQLiteStore) CompleteSettlement(ctx context.Context, id string, confirmedAt int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE settlements
		 SET status = ?, receiver_confirmed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		models.SettlementComplete, confirmedAt, confirmedAt, id, models.SettlementPayerConfirmed,
	)
	if err != nil {
		return fmt.Errorf("failed to complete settlement: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, getErr := s.GetSettlement(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: settlement already confirmed", storage.ErrConflict)
	}
	return nil
}

// ListSettlementsByGroup retrieves all settlements for a group, newest first.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, payer_id, receiver_id, amount, status,
		        payer_confirmed_at, receiver_confirmed_at, created_at, updated_at
		 FROM settlements WHERE group_id = ? ORDER BY created_at DESC, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var amount int64
	var receiverConfirmedAt sql.NullInt64
	err := row.Scan(
		&settlement.ID, &settlement.GroupID, &settlement.PayerID, &settlement.ReceiverID,
		&amount, &settlement.Status, &settlement.PayerConfirmedAt,
		&receiverConfirmedAt, &settlement.CreatedAt, &settlement.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	settlement.Amount = money.Cents(amount)
	if receiverConfirmedAt.Valid {
		settlement.ReceiverConfirmedAt = receiverConfirmedAt.Int64
	}
	return settlement, nil
}

func nullIfZero(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

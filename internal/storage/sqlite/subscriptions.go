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

// dateFormat is how due dates are stored; date precision only.
const dateFormat = "2006-01-02"

// CreateSubscription persists a subscription with its member shares. A
// duplicate (group, name) pair returns storage.ErrConflict.
func (s *SQLiteStore) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if sub.CreatedAt == 0 {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt == 0 {
		sub.UpdatedAt = sub.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, group_id, name, amount, cadence, next_due_date,
		                            notes, category_id, created_by_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.GroupID, sub.Name, int64(sub.Amount), sub.Cadence,
		sub.NextDueDate.Format(dateFormat), sub.Notes, nullIfEmpty(sub.CategoryID),
		sub.CreatedByID, sub.CreatedAt, sub.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: subscription %q already exists in group", storage.ErrConflict, sub.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	if err := insertSubscriptionMembers(ctx, tx, sub.ID, sub.Members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSubscription retrieves a subscription by ID, including member shares.
func (s *SQLiteStore) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, amount, cadence, next_due_date,
		        notes, category_id, created_by_id, created_at, updated_at
		 FROM subscriptions WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: subscription %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	members, err := s.subscriptionMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.Members = members

	return sub, nil
}

// UpdateSubscription replaces a subscription and its full member-share list.
func (s *SQLiteStore) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE subscriptions
		 SET name = ?, amount = ?, cadence = ?, next_due_date = ?, notes = ?, category_id = ?, updated_at = ?
		 WHERE id = ?`,
		sub.Name, int64(sub.Amount), sub.Cadence, sub.NextDueDate.Format(dateFormat),
		sub.Notes, nullIfEmpty(sub.CategoryID), sub.UpdatedAt, sub.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: subscription %q already exists in group", storage.ErrConflict, sub.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: subscription %s", storage.ErrNotFound, sub.ID)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM subscription_members WHERE subscription_id = ?", sub.ID,
	); err != nil {
		return fmt.Errorf("failed to clear subscription members: %w", err)
	}
	if err := insertSubscriptionMembers(ctx, tx, sub.ID, sub.Members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AdvanceSubscriptionDueDate moves the due date forward after a payment.
func (s *SQLiteStore) AdvanceSubscriptionDueDate(ctx context.Context, id string, next time.Time, updatedAt int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE subscriptions SET next_due_date = ?, updated_at = ? WHERE id = ?",
		next.Format(dateFormat), updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to advance subscription due date: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: subscription %s", storage.ErrNotFound, id)
	}
	return nil
}

// DeleteSubscription removes a subscription; its member shares cascade.
func (s *SQLiteStore) DeleteSubscription(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: subscription %s", storage.ErrNotFound, id)
	}
	return nil
}

// ListSubscriptionsByGroup retrieves all subscriptions of a group ordered by
// due date.
func (s *SQLiteStore) ListSubscriptionsByGroup(ctx context.Context, groupID string) ([]*models.Subscription, error) {
	return s.listSubscriptions(ctx,
		`SELECT id, group_id, name, amount, cadence, next_due_date,
		        notes, category_id, created_by_id, created_at, updated_at
		 FROM subscriptions WHERE group_id = ? ORDER BY next_due_date, id`,
		groupID,
	)
}

// ListSubscriptionsDueBy retrieves every subscription whose due date falls on
// or before the given day, across all groups.
func (s *SQLiteStore) ListSubscriptionsDueBy(ctx context.Context, day time.Time) ([]*models.Subscription, error) {
	return s.listSubscriptions(ctx,
		`SELECT id, group_id, name, amount, cadence, next_due_date,
		        notes, category_id, created_by_id, created_at, updated_at
		 FROM subscriptions WHERE next_due_date <= ? ORDER BY next_due_date, id`,
		day.Format(dateFormat),
	)
}

func (s *SQLiteStore) listSubscriptions(ctx context.Context, query string, args ...any) ([]*models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}

	for _, sub := range subs {
		members, err := s.subscriptionMembers(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		sub.Members = members
	}

	return subs, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var amount int64
	var dueDate string
	var categoryID sql.NullString
	err := row.Scan(
		&sub.ID, &sub.GroupID, &sub.Name, &amount, &sub.Cadence, &dueDate,
		&sub.Notes, &categoryID, &sub.CreatedByID, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Amount = money.Cents(amount)
	sub.CategoryID = stringOrEmpty(categoryID)
	sub.NextDueDate, err = time.ParseInLocation(dateFormat, dueDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}
	return sub, nil
}

func insertSubscriptionMembers(ctx context.Context, tx *sql.Tx, subID string, members []models.SubscriptionMember) error {
	for _, member := range members {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO subscription_members (subscription_id, user_id, share) VALUES (?, ?, ?)",
			subID, member.UserID, member.Share,
		)
		if err != nil {
			return fmt.Errorf("failed to insert subscription member: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) subscriptionMembers(ctx context.Context, subID string) ([]models.SubscriptionMember, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, share FROM subscription_members WHERE subscription_id = ? ORDER BY user_id",
		subID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription members: %w", err)
	}
	defer rows.Close()

	var members []models.SubscriptionMember
	for rows.Next() {
		var member models.SubscriptionMember
		if err := rows.Scan(&member.UserID, &member.Share); err != nil {
			return nil, fmt.Errorf("failed to scan subscription member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscription members: %w", err)
	}

	return members, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitpot/splitpot/internal/models"
	"github.com/splitpot/splitpot/internal/storage"
)

// CreateInvite persists a new pending invite. A second pending invite for the
// same (group, invitee) pair violates the partial unique index and returns
// storage.ErrConflict.
func (s *SQLiteStore) CreateInvite(ctx context.Context, invite *models.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	if invite.Status == "" {
		invite.Status = models.InvitePending
	}
	if invite.CreatedAt == 0 {
		invite.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_invites (id, group_id, inviter_id, invitee_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		invite.ID, invite.GroupID, invite.InviterID, invite.InviteeID, invite.Status, invite.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: invite already pending", storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert invite: %w", err)
	}

	return nil
}

// GetInvite retrieves an invite by ID.
func (s *SQLiteStore) GetInvite(ctx context.Context, id string) (*models.Invite, error) {
	invite := &models.Invite{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, inviter_id, invitee_id, status, created_at
		 FROM group_invites WHERE id = ?`,
		id,
	).Scan(&invite.ID, &invite.GroupID, &invite.InviterID, &invite.InviteeID, &invite.Status, &invite.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invite %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// GetPendingInvite retrieves the pending invite for a (group, invitee) pair,
// or storage.ErrNotFound when none is pending.
func (s *SQLiteStore) GetPendingInvite(ctx context.Context, groupID, inviteeID string) (*models.Invite, error) {
	invite := &models.Invite{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, inviter_id, invitee_id, status, created_at
		 FROM group_invites WHERE group_id = ? AND invitee_id = ? AND status = 'pending'`,
		groupID, inviteeID,
	).Scan(&invite.ID, &invite.GroupID, &invite.InviterID, &invite.InviteeID, &invite.Status, &invite.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pending invite for %s in group %s", storage.ErrNotFound, inviteeID, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending invite: %w", err)
	}
	return invite, nil
}

// ListPendingInvitesForUser retrieves all pending invites addressed to a user.
func (s *SQLiteStore) ListPendingInvitesForUser(ctx context.Context, userID string) ([]*models.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, inviter_id, invitee_id, status, created_at
		 FROM group_invites WHERE invitee_id = ? AND status = 'pending'
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invites: %w", err)
	}
	defer rows.Close()

	var invites []*models.Invite
	for rows.Next() {
		invite := &models.Invite{}
		if err := rows.Scan(&invite.ID, &invite.GroupID, &invite.InviterID, &invite.InviteeID, &invite.Status, &invite.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}

	return invites, nil
}

// AcceptInvite flips a pending invite to accepted and adds the invitee as a
// group member in the same transaction. A non-pending invite returns
// storage.ErrConflict.
func (s *SQLiteStore) AcceptInvite(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invite := &models.Invite{}
	err = tx.QueryRowContext(ctx,
		"SELECT id, group_id, invitee_id, status FROM group_invites WHERE id = ?",
		id,
	).Scan(&invite.ID, &invite.GroupID, &invite.InviteeID, &invite.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: invite %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get invite: %w", err)
	}
	if invite.Status != models.InvitePending {
		return fmt.Errorf("%w: invite is %s", storage.ErrConflict, invite.Status)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE group_invites SET status = 'accepted' WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("failed to accept invite: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
		invite.GroupID, invite.InviteeID,
	); err != nil {
		return fmt.Errorf("failed to add invited member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeclineInvite flips a pending invite to declined. A non-pending invite
// returns storage.ErrConflict.
func (s *SQLiteStore) DeclineInvite(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE group_invites SET status = 'declined' WHERE id = ? AND status = 'pending'",
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to decline invite: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, getErr := s.GetInvite(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: invite is not pending", storage.ErrConflict)
	}
	return nil
}

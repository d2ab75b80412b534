package sqlstore

import (
	"context"

	"github.com/rs/xid"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
)

// AppendNotification adds an unread entry to the user's log. An unknown
// user id writes nothing.
func (s *Store) AppendNotification(ctx context.Context, userID, message string) (*model.Notification, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	n := &model.Notification{
		ID:        xid.New().String(),
		UserID:    userID,
		Message:   message,
		CreatedAt: s.now(),
	}
	_, err := s.exec(ctx, s.conn,
		`INSERT INTO notifications (id, user_id, message, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, false, n.CreatedAt,
	)
	if err != nil {
		return nil, s.wrap("inserting notification", err)
	}
	return n, nil
}

// MarkNotificationsRead flips every unread entry of the user to read and
// returns how many changed. Calling it again changes nothing.
func (s *Store) MarkNotificationsRead(ctx context.Context, userID string) (int64, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return 0, err
	}

	result, err := s.exec(ctx, s.conn,
		`UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`,
		true, userID, false,
	)
	if err != nil {
		return 0, s.wrap("marking notifications read", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, s.wrap("counting notifications", err)
	}
	return n, nil
}

func (s *Store) notifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.query(ctx, s.conn,
		`SELECT id, user_id, message, is_read, created_at FROM notifications
		 WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, s.wrap("querying notifications", err)
	}
	defer rows.Close()

	list := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, s.wrap("scanning notification", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("iterating notifications", err)
	}
	return list, nil
}

func (s *Store) requireUser(ctx context.Context, userID string) error {
	var count int
	err := s.queryRow(ctx, s.conn, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&count)
	if err != nil {
		return s.wrap("checking user", err)
	}
	if count == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

package sqlstore

import (
	"context"
	"database/sql"

	"github.com/rs/xid"

	"github.com/petmatch/petmatch/internal/model"
)

func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	msg.ID = xid.New().String()
	msg.CreatedAt = s.now()

	_, err := s.exec(ctx, s.conn,
		`INSERT INTO messages (id, sender_id, receiver_id, pet_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.PetID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return s.wrap("inserting message", err)
	}
	return nil
}

// ListMessagesForUser joins each message to its sender, receiver and pet.
// The joins are outer: a message whose references are gone still shows up,
// with the missing side left nil.
func (s *Store) ListMessagesForUser(ctx context.Context, userID string) ([]model.MessageView, error) {
	rows, err := s.query(ctx, s.conn,
		`SELECT m.id, m.sender_id, m.receiver_id, m.pet_id, m.content, m.created_at,
			snd.id, snd.username, snd.email,
			rcv.id, rcv.username, rcv.email,
			p.id, p.name, p.image
		 FROM messages m
		 LEFT JOIN users snd ON snd.id = m.sender_id
		 LEFT JOIN users rcv ON rcv.id = m.receiver_id
		 LEFT JOIN pets p ON p.id = m.pet_id
		 WHERE m.sender_id = ? OR m.receiver_id = ?
		 ORDER BY m.created_at DESC, m.id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, s.wrap("querying messages", err)
	}
	defer rows.Close()

	views := []model.MessageView{}
	for rows.Next() {
		var (
			v                        model.MessageView
			sender, receiver         nullSummary
			petID, petName, petImage sql.NullString
		)
		err := rows.Scan(&v.ID, &v.SenderID, &v.ReceiverID, &v.PetID, &v.Content, &v.CreatedAt,
			&sender.id, &sender.username, &sender.email,
			&receiver.id, &receiver.username, &receiver.email,
			&petID, &petName, &petImage)
		if err != nil {
			return nil, s.wrap("scanning message", err)
		}
		v.Sender = sender.summary()
		v.Receiver = receiver.summary()
		if petID.Valid {
			v.Pet = &model.PetSummary{ID: petID.String, Name: petName.String, Image: petImage.String}
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("iterating messages", err)
	}
	return views, nil
}

package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"coppia/internal/achievements"
)

// EvaluateMessage asks the worker to re-run achievement evaluation for a user.
// It carries no ledger data; the worker reads a fresh snapshot.
type EvaluateMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvaluateMessage(userID, reason string) *EvaluateMessage {
	return &EvaluateMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *EvaluateMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EvaluateMessageFromJSON decodes a message and rejects one without a user.
func EvaluateMessageFromJSON(data []byte) (*EvaluateMessage, error) {
	var msg EvaluateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.UserID) == "" {
		return nil, errors.New("evaluate message without user_id")
	}
	return &msg, nil
}

// AchievementUnlockedMessage notifies downstream consumers of a newly stored unlock.
type AchievementUnlockedMessage struct {
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	EarnedAt time.Time `json:"earned_at"`
}

func NewAchievementUnlockedMessage(e achievements.UnlockEvent) *AchievementUnlockedMessage {
	return &AchievementUnlockedMessage{
		EventID:  e.ID.String(),
		UserID:   e.UserID,
		Type:     string(e.Type),
		Title:    e.Title,
		EarnedAt: e.EarnedAt,
	}
}

func (m *AchievementUnlockedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AchievementUnlockedMessageFromJSON(data []byte) (*AchievementUnlockedMessage, error) {
	var msg AchievementUnlockedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

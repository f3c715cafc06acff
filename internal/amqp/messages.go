package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RefreshRequest asks consumers to recompute the dashboard. It carries no
// ledger data; the consumer reads its own snapshot.
type RefreshRequest struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshRequest creates a request stamped with a fresh ID and time.
func NewRefreshRequest(source string) *RefreshRequest {
	return &RefreshRequest{
		ID:          uuid.NewString(),
		Source:      source,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestFromJSON decodes a message and checks its ID.
func RefreshRequestFromJSON(data []byte) (*RefreshRequest, error) {
	var msg RefreshRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, errors.New("refresh request has no valid id")
	}
	return &msg, nil
}

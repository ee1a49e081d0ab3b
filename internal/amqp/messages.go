package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RefreshRequestMessage asks a worker to re-import the given years from AFAS.
type RefreshRequestMessage struct {
	ID        string    `json:"id"`
	StartYear int       `json:"startYear"`
	EndYear   int       `json:"endYear"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRefreshRequestMessage(startYear, endYear int, reason string) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		ID:        uuid.NewString(),
		StartYear: startYear,
		EndYear:   endYear,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *RefreshRequestMessage) Validate() error {
	if m.StartYear <= 0 || m.EndYear <= 0 {
		return fmt.Errorf("invalid refresh years %d..%d", m.StartYear, m.EndYear)
	}
	if m.StartYear > m.EndYear {
		return fmt.Errorf("refresh start year %d is after end year %d", m.StartYear, m.EndYear)
	}
	return nil
}

func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshRequestMessageFromJSON decodes and validates a message body.
func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

package amqp

import (
	"encoding/json"
	"time"
)

// ScanRequestMessage carries one receipt photo from a chat frontend to the
// scan worker. Image travels inline (base64 over JSON); APIKey optionally
// overrides the configured Gemini key for this request only.
type ScanRequestMessage struct {
	RequestID string    `json:"request_id"`
	Name      string    `json:"name"`
	Image     []byte    `json:"image"`
	APIKey    string    `json:"api_key,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanResultMessage carries the outcome back to the frontend. The report
// text is pre-chunked so the consumer can post each chunk as one message.
type ScanResultMessage struct {
	RequestID string    `json:"request_id"`
	Chunks    []string  `json:"chunks"`
	Timestamp time.Time `json:"timestamp"`
}

func NewScanRequestMessage(requestID, name string, image []byte) *ScanRequestMessage {
	return &ScanRequestMessage{
		RequestID: requestID,
		Name:      name,
		Image:     image,
		Timestamp: time.Now(),
	}
}

func NewScanResultMessage(requestID string, chunks []string) *ScanResultMessage {
	return &ScanResultMessage{
		RequestID: requestID,
		Chunks:    chunks,
		Timestamp: time.Now(),
	}
}

func (m *ScanRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ScanRequestMessageFromJSON(data []byte) (*ScanRequestMessage, error) {
	var msg ScanRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *ScanResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ScanResultMessageFromJSON(data []byte) (*ScanResultMessage, error) {
	var msg ScanResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package store

import (
	"time"

	"gorm.io/datatypes"
)

// SymptomLog is one symptom interaction: the user query, the symptoms
// extracted from it and the response given.
type SymptomLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"index;size:128" json:"user_id"`
	Query         string    `gorm:"type:text" json:"query"`
	Symptoms      string    `gorm:"type:text" json:"symptoms"` // comma separated
	StressLevel   string    `gorm:"size:64" json:"stress_level"`
	RiskScore     float64   `json:"risk_score"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	FinalResponse string    `gorm:"type:text" json:"final_response"`
}

// TableName specifies the table name
func (SymptomLog) TableName() string {
	return "symptom_logs"
}

// ConversationLog is one stored chat turn with every agent output.
type ConversationLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"index;size:128" json:"user_id"`
	Message   string         `gorm:"type:text" json:"message"`
	Intents   string         `gorm:"type:text" json:"intents"` // comma separated
	Results   datatypes.JSON `json:"results"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
}

// TableName specifies the table name
func (ConversationLog) TableName() string {
	return "conversation_logs"
}

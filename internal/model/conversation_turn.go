package model

import (
	"encoding/json"
	"time"
)

// SourceRef cites one retrieved chunk that contributed to an answer.
type SourceRef struct {
	FileName       string  `json:"file_name"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// ConversationTurn is one query/answer exchange with its cited chunks.
// Sources is stored as a JSON array for portability.
type ConversationTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Intent    string    `gorm:"size:32" json:"intent,omitempty"`
	Sources   string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SourceRefs returns the parsed source citations; nil on parse error.
func (t *ConversationTurn) SourceRefs() []SourceRef {
	if t.Sources == "" {
		return nil
	}
	var refs []SourceRef
	_ = json.Unmarshal([]byte(t.Sources), &refs)
	return refs
}

// SetSourceRefs stores the citations as JSON.
func (t *ConversationTurn) SetSourceRefs(refs []SourceRef) {
	if len(refs) == 0 {
		t.Sources = "[]"
		return
	}
	b, _ := json.Marshal(refs)
	t.Sources = string(b)
}

package model

import "time"

// Chunk is one fixed-size window of a document's text. Chunks are
// immutable once created. The embedding vector is owned by the vector
// store and addressed by PointID; it is never stored here.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	PointID    string    `gorm:"size:36;not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

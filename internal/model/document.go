package model

import "time"

// Document is an uploaded PDF. The original file lives in the upload
// directory as "{FileID}_{FileName}"; its chunk embeddings live in the
// vector store under the same FileID.
type Document struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	UserID        uint      `gorm:"not null;index" json:"-"`
	FileID        string    `gorm:"size:36;not null;uniqueIndex" json:"file_id"`
	FileName      string    `gorm:"size:256;not null" json:"file_name"`
	NumChunks     int       `gorm:"not null" json:"num_chunks"`
	NumCharacters int       `gorm:"not null" json:"num_characters"`
	CreatedAt     time.Time `json:"created_at"`
}

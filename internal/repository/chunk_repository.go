package repository

import (
	"fmt"

	"gorm.io/gorm"

	"pdfchat/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocumentIDs(documentIDs []uint) error {
	if len(documentIDs) == 0 {
		return nil
	}
	if err := r.db.Where("document_id IN ?", documentIDs).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by documents failed: %w", err)
	}
	return nil
}

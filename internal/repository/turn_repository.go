package repository

import (
	"fmt"

	"gorm.io/gorm"

	"pdfchat/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) Create(turn *model.ConversationTurn) error {
	if err := r.db.Create(turn).Error; err != nil {
		return fmt.Errorf("create conversation turn failed: %w", err)
	}
	return nil
}

func (r *TurnRepository) ListByUserID(userID uint, limit int) ([]model.ConversationTurn, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var turns []model.ConversationTurn
	if err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Limit(limit).Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list turns failed: %w", err)
	}
	return turns, nil
}

// ListRecentByUserID returns the newest turns in chronological order.
func (r *TurnRepository) ListRecentByUserID(userID uint, limit int) ([]model.ConversationTurn, error) {
	if limit <= 0 {
		limit = 5
	}
	var turns []model.ConversationTurn
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list recent turns failed: %w", err)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *TurnRepository) DeleteByUserID(userID uint) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&model.ConversationTurn{}).Error; err != nil {
		return fmt.Errorf("delete turns failed: %w", err)
	}
	return nil
}

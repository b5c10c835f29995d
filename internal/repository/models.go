package repository

import (
	"time"

	"github.com/cauafreitas/portfolio-api/internal/domain"
)

// MessageModel is the persistence model for the messages table.
type MessageModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"type:varchar(120);not null"`
	SenderEmail string `gorm:"type:varchar(255);not null"`
	Content     string `gorm:"type:text;not null"`
	CreatedAt   time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// FeedbackModel is the persistence model for the feedback table.
type FeedbackModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (FeedbackModel) TableName() string {
	return "feedback"
}

func messageModelFromDomain(m *domain.ContactMessage) *MessageModel {
	if m == nil {
		return nil
	}

	return &MessageModel{
		ID:          m.ID,
		Name:        m.Name,
		SenderEmail: m.SenderEmail,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func messageModelToDomain(model *MessageModel) *domain.ContactMessage {
	if model == nil {
		return nil
	}

	return &domain.ContactMessage{
		ID:          model.ID,
		Name:        model.Name,
		SenderEmail: model.SenderEmail,
		Content:     model.Content,
		CreatedAt:   model.CreatedAt,
	}
}

func feedbackModelFromDomain(f *domain.Feedback) *FeedbackModel {
	if f == nil {
		return nil
	}

	return &FeedbackModel{
		ID:        f.ID,
		Content:   f.Content,
		CreatedAt: f.CreatedAt,
	}
}

func feedbackModelToDomain(model *FeedbackModel) *domain.Feedback {
	if model == nil {
		return nil
	}

	return &domain.Feedback{
		ID:        model.ID,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}

package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Content limits (in characters).
const (
	MaxNameLength    = 120
	MaxContentLength = 5000
)

// ContactMessage is a visitor-submitted message from the portfolio contact
// form. Immutable once stored; resubmissions are independent entities.
type ContactMessage struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"type:varchar(120);not null"`
	SenderEmail string `gorm:"type:varchar(255);not null"`
	Content     string `gorm:"type:text;not null"`
	CreatedAt   time.Time
}

func (m *ContactMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(m.SenderEmail) == "" {
		return fmt.Errorf("%w: sender email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(m.SenderEmail); err != nil {
		return fmt.Errorf("%w: invalid sender email %q", ErrValidation, m.SenderEmail)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}

	if nameLen := len([]rune(m.Name)); nameLen > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters (got %d)", ErrValidation, MaxNameLength, nameLen)
	}
	if contentLen := len([]rune(m.Content)); contentLen > MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters (got %d)", ErrValidation, MaxContentLength, contentLen)
	}

	return nil
}

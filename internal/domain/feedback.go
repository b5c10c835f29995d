package domain

import (
	"fmt"
	"strings"
	"time"
)

const MaxFeedbackLength = 2000

// Feedback is an anonymous site feedback note. Stored only, never mailed.
type Feedback struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (f *Feedback) Validate() error {
	if strings.TrimSpace(f.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if contentLen := len([]rune(f.Content)); contentLen > MaxFeedbackLength {
		return fmt.Errorf("%w: content exceeds %d characters (got %d)", ErrValidation, MaxFeedbackLength, contentLen)
	}
	return nil
}

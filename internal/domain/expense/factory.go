package expense

import (
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

func NewFromCreateRequest(userID string, req CreateExpenseRequest) Expense {
	now := time.Now().UTC()

	date := req.Date

	if date == "" {
		date = now.Format(DateLayout)
	}

	return Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

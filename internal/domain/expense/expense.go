package expense

import (
	"errors"
	"time"
)

type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"` // scoping key, never taken from the client
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        string    `json:"date"` // YYYY-MM-DD
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ErrNotFound covers both "no such expense" and "belongs to someone else" so
// the API never confirms existence of other users' records.
var ErrNotFound = errors.New("expense not found")

type CreateExpenseRequest struct {
	Description string  `json:"description" binding:"required,min=1,max=500"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Category    string  `json:"category" binding:"required,min=1,max=80"`
	Date        string  `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

type UpdateExpenseRequest struct {
	Description string  `json:"description" binding:"required,min=1,max=500"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Category    string  `json:"category" binding:"required,min=1,max=80"`
	Date        string  `json:"date" binding:"required,datetime=2006-01-02"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Query    *string
	From     *string // YYYY-MM-DD, inclusive
	To       *string // YYYY-MM-DD, inclusive
	Category *string
	Limit    int
	Offset   int
}

type CategorySummary struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type Summary struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	Categories []CategorySummary `json:"categories"`
	GrandTotal float64           `json:"grandTotal"`
	Count      int               `json:"count"`
}

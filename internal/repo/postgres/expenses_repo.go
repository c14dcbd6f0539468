package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/expensehub/internal/domain/expense"
	"github.com/geocoder89/expensehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Every statement filters by user_id. The repo performs no authorization of
// its own: it trusts the user id the authorization gate resolved.
type ExpensesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewExpensesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ExpensesRepo {
	return &ExpensesRepo{pool: pool, prom: prom}
}

func (r *ExpensesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ExpensesRepo) Create(ctx context.Context, userID string, req expense.CreateExpenseRequest) (expense.Expense, error) {
	e := expense.NewFromCreateRequest(userID, req)

	err := r.observe("expenses.create", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO expenses (id, user_id, description, amount, category, date, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.ID, e.UserID, e.Description, e.Amount, e.Category, e.Date, e.CreatedAt, e.UpdatedAt,
		)
		return execErr
	})

	if err != nil {
		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) List(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, int, error) {
	baseQuery := `SELECT id,
		user_id,
		description,
		amount,
		category,
		to_char(date, 'YYYY-MM-DD'),
		created_at,
		updated_at,
		COUNT(*) OVER() AS total
	FROM expenses
	`

	// user scoping is always the first condition
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	argsPosition := 2

	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("(description ILIKE $%d OR category ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+*filter.Query+"%")
		argsPosition++
	}

	if filter.From != nil {
		conds = append(conds, fmt.Sprintf("date >= $%d", argsPosition))
		args = append(args, *filter.From)
		argsPosition++
	}

	if filter.To != nil {
		conds = append(conds, fmt.Sprintf("date <= $%d", argsPosition))
		args = append(args, *filter.To)
		argsPosition++
	}

	if filter.Category != nil {
		conds = append(conds, fmt.Sprintf("category ILIKE $%d", argsPosition))
		args = append(args, *filter.Category)
		argsPosition++
	}

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ")

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY date DESC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var rows pgx.Rows
	err := r.observe("expenses.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	output := make([]expense.Expense, 0, filter.Limit)
	total := 0

	for rows.Next() {
		var e expense.Expense
		var t int

		err = rows.Scan(&e.ID, &e.UserID, &e.Description, &e.Amount, &e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt, &t)

		if err != nil {
			return nil, 0, err
		}

		total = t
		output = append(output, e)
	}

	err = rows.Err()

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// Summarize groups a user's expenses by category within an inclusive date
// range, optionally restricted to one category.
func (r *ExpensesRepo) Summarize(ctx context.Context, userID, from, to string, category *string) (expense.Summary, error) {
	query := `SELECT category, SUM(amount), COUNT(*)
	FROM expenses
	WHERE user_id = $1 AND date >= $2 AND date <= $3`

	args := []interface{}{userID, from, to}

	if category != nil {
		query += " AND category ILIKE $4"
		args = append(args, *category)
	}

	query += " GROUP BY category ORDER BY category ASC"

	var rows pgx.Rows
	err := r.observe("expenses.summarize", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, query, args...)
		return qerr
	})

	if err != nil {
		return expense.Summary{}, err
	}

	defer rows.Close()

	summary := expense.Summary{
		From:       from,
		To:         to,
		Categories: make([]expense.CategorySummary, 0),
	}

	for rows.Next() {
		var cs expense.CategorySummary

		err = rows.Scan(&cs.Category, &cs.Total, &cs.Count)

		if err != nil {
			return expense.Summary{}, err
		}

		summary.Categories = append(summary.Categories, cs)
		summary.GrandTotal += cs.Total
		summary.Count += cs.Count
	}

	err = rows.Err()

	if err != nil {
		return expense.Summary{}, err
	}

	return summary, nil
}

func (r *ExpensesRepo) GetByID(ctx context.Context, userID, id string) (expense.Expense, error) {
	var e expense.Expense

	err := r.observe("expenses.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, description, amount, category, to_char(date, 'YYYY-MM-DD'), created_at, updated_at
			 FROM expenses
			 WHERE id = $1 AND user_id = $2`,
			id, userID,
		).Scan(&e.ID, &e.UserID, &e.Description, &e.Amount, &e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// missing and not-owned are indistinguishable on purpose
			return expense.Expense{}, expense.ErrNotFound
		}

		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) Update(ctx context.Context, userID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
	var e expense.Expense

	err := r.observe("expenses.update", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE expenses
			 SET description = $3,
			     amount = $4,
			     category = $5,
			     date = $6,
			     updated_at = NOW()
			 WHERE id = $1 AND user_id = $2
			 RETURNING id, user_id, description, amount, category, to_char(date, 'YYYY-MM-DD'), created_at, updated_at`,
			id, userID,
			req.Description, req.Amount, req.Category, req.Date,
		).Scan(&e.ID, &e.UserID, &e.Description, &e.Amount, &e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrNotFound
		}

		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) Delete(ctx context.Context, userID, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("expenses.delete", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx,
			`DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
		return execErr
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return expense.ErrNotFound
	}

	return nil
}

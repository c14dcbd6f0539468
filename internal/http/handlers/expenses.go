package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/expensehub/internal/cache"
	"github.com/geocoder89/expensehub/internal/config"
	"github.com/geocoder89/expensehub/internal/domain/category"
	"github.com/geocoder89/expensehub/internal/domain/expense"
	"github.com/geocoder89/expensehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type ExpensesStore interface {
	Create(ctx context.Context, userID string, req expense.CreateExpenseRequest) (expense.Expense, error)
	List(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, int, error)
	Summarize(ctx context.Context, userID, from, to string, category *string) (expense.Summary, error)
	GetByID(ctx context.Context, userID, id string) (expense.Expense, error)
	Update(ctx context.Context, userID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error)
	Delete(ctx context.Context, userID, id string) error
}

// ExpensesHandler never reads an owner from request arguments: the scoping
// key is always the identity the auth middleware resolved, so one user's
// token can never touch another user's records.
type ExpensesHandler struct {
	repo      ExpensesStore
	taxonomy  *category.Taxonomy
	summaries *cache.SummaryCache // optional, nil-safe
}

func NewExpensesHandler(repo ExpensesStore, taxonomy *category.Taxonomy, summaries *cache.SummaryCache) *ExpensesHandler {
	return &ExpensesHandler{
		repo:      repo,
		taxonomy:  taxonomy,
		summaries: summaries,
	}
}

func (h *ExpensesHandler) AddExpense(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	var req expense.CreateExpenseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !h.taxonomy.Valid(req.Category) {
		RespondBadRequest(ctx, "Unknown category", gin.H{"category": req.Category})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.Create(cctx, userID, req)

	if err != nil {
		RespondInternal(ctx, "Could not add expense")
		return
	}

	h.summaries.InvalidateUser(cctx, userID)

	ctx.JSON(http.StatusCreated, e)
}

func (h *ExpensesHandler) ListExpenses(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	filter := expense.ListFilter{
		Limit:  parseLimit(ctx.Query("limit")),
		Offset: parseOffset(ctx.Query("offset")),
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, userID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list expenses")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
		"total": total,
	})
}

func (h *ExpensesHandler) SearchExpenses(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	q := ctx.Query("q")

	if q == "" {
		RespondBadRequest(ctx, "Missing search term", gin.H{"q": "is required"})
		return
	}

	filter := expense.ListFilter{
		Query:  &q,
		Limit:  parseLimit(ctx.Query("limit")),
		Offset: parseOffset(ctx.Query("offset")),
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, userID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not search expenses")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
		"total": total,
	})
}

// ListByRange returns the detailed expense list between two inclusive dates,
// optionally filtered by category.
func (h *ExpensesHandler) ListByRange(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	from, to, ok := dateRangeParams(ctx)

	if !ok {
		return
	}

	filter := expense.ListFilter{
		From:   &from,
		To:     &to,
		Limit:  parseLimit(ctx.Query("limit")),
		Offset: parseOffset(ctx.Query("offset")),
	}

	if cat := ctx.Query("category"); cat != "" {
		filter.Category = &cat
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, total, err := h.repo.List(cctx, userID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list expenses")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
		"total": total,
	})
}

func (h *ExpensesHandler) SummarizeByRange(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	from, to, ok := dateRangeParams(ctx)

	if !ok {
		return
	}

	var cat *string

	cacheKey := from + "|" + to

	if c := ctx.Query("category"); c != "" {
		cat = &c
		cacheKey += "|" + c
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if payload, hit := h.summaries.Get(cctx, userID, cacheKey); hit {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", payload)
		return
	}

	summary, err := h.repo.Summarize(cctx, userID, from, to, cat)

	if err != nil {
		RespondInternal(ctx, "Could not summarize expenses")
		return
	}

	payload, err := json.Marshal(summary)

	if err != nil {
		RespondInternal(ctx, "Could not summarize expenses")
		return
	}

	h.summaries.Set(cctx, userID, cacheKey, payload)

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *ExpensesHandler) GetExpenseById(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, userID, id)

	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			RespondNotFound(ctx, "Expense not found")
			return
		}
		RespondInternal(ctx, "Could not fetch expense")
		return
	}

	ctx.JSON(http.StatusOK, e)
}

func (h *ExpensesHandler) UpdateExpense(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	var req expense.UpdateExpenseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !h.taxonomy.Valid(req.Category) {
		RespondBadRequest(ctx, "Unknown category", gin.H{"category": req.Category})
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.Update(cctx, userID, id, req)

	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			RespondNotFound(ctx, "Expense not found")
			return
		}
		RespondInternal(ctx, "Could not update expense")
		return
	}

	h.summaries.InvalidateUser(cctx, userID)

	ctx.JSON(http.StatusOK, e)
}

func (h *ExpensesHandler) DeleteExpense(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "invalid_session", "Missing identity")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, userID, id)

	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			RespondNotFound(ctx, "Expense not found")
			return
		}
		RespondInternal(ctx, "Could not delete expense")
		return
	}

	h.summaries.InvalidateUser(cctx, userID)

	ctx.Status(http.StatusNoContent)
}

// query param helpers

func parseLimit(raw string) int {
	limit := 20

	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil && n > 0 {
			limit = n
		}
	}

	if limit > 100 {
		limit = 100
	}

	return limit
}

func parseOffset(raw string) int {
	if raw == "" {
		return 0
	}

	n, err := strconv.Atoi(raw)

	if err != nil || n < 0 {
		return 0
	}

	return n
}

func dateRangeParams(ctx *gin.Context) (string, string, bool) {
	from := ctx.Query("from")
	to := ctx.Query("to")

	if from == "" || to == "" {
		RespondBadRequest(ctx, "Missing date range", gin.H{"from": "is required", "to": "is required"})
		return "", "", false
	}

	fromDate, err := time.Parse(expense.DateLayout, from)

	if err != nil {
		RespondBadRequest(ctx, "Invalid from date", gin.H{"from": "must be YYYY-MM-DD"})
		return "", "", false
	}

	toDate, err := time.Parse(expense.DateLayout, to)

	if err != nil {
		RespondBadRequest(ctx, "Invalid to date", gin.H{"to": "must be YYYY-MM-DD"})
		return "", "", false
	}

	if toDate.Before(fromDate) {
		RespondBadRequest(ctx, "Invalid date range", gin.H{"to": "must not be before from"})
		return "", "", false
	}

	return from, to, true
}

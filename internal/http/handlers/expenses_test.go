package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geocoder89/expensehub/internal/domain/category"
	"github.com/geocoder89/expensehub/internal/domain/expense"
	"github.com/geocoder89/expensehub/internal/domain/user"
	"github.com/geocoder89/expensehub/internal/http/handlers"
	"github.com/geocoder89/expensehub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Fake repository implementation of the handlers.ExpensesStore interface

type fakeExpensesRepo struct {
	createFn    func(ctx context.Context, userID string, req expense.CreateExpenseRequest) (expense.Expense, error)
	listFn      func(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, int, error)
	summarizeFn func(ctx context.Context, userID, from, to string, category *string) (expense.Summary, error)
	getFn       func(ctx context.Context, userID, id string) (expense.Expense, error)
	updateFn    func(ctx context.Context, userID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error)
	deleteFn    func(ctx context.Context, userID, id string) error
}

func (f *fakeExpensesRepo) Create(ctx context.Context, userID string, req expense.CreateExpenseRequest) (expense.Expense, error) {
	if f.createFn != nil {
		return f.createFn(ctx, userID, req)
	}

	return expense.Expense{}, nil
}

func (f *fakeExpensesRepo) List(ctx context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, userID, filter)
	}

	return []expense.Expense{}, 0, nil
}

func (f *fakeExpensesRepo) Summarize(ctx context.Context, userID, from, to string, category *string) (expense.Summary, error) {
	if f.summarizeFn != nil {
		return f.summarizeFn(ctx, userID, from, to, category)
	}

	return expense.Summary{}, nil
}

func (f *fakeExpensesRepo) GetByID(ctx context.Context, userID, id string) (expense.Expense, error) {
	if f.getFn != nil {
		return f.getFn(ctx, userID, id)
	}

	return expense.Expense{}, expense.ErrNotFound
}

func (f *fakeExpensesRepo) Update(ctx context.Context, userID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, userID, id, req)
	}

	return expense.Expense{}, expense.ErrNotFound
}

func (f *fakeExpensesRepo) Delete(ctx context.Context, userID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, userID, id)
	}

	return expense.ErrNotFound
}

// a validator whose only live token is "Bearer alice-token"

type staticValidator struct{}

func (staticValidator) Validate(_ context.Context, token string) (user.User, error) {
	if token == "alice-token" {
		return user.User{ID: "alice-id", Username: "alice"}, nil
	}

	return user.User{}, user.ErrInvalidSession
}

func mustTaxonomy(t *testing.T) *category.Taxonomy {
	t.Helper()

	taxonomy, err := category.Load()

	if err != nil {
		t.Fatalf("loading embedded taxonomy failed: %v", err)
	}

	return taxonomy
}

// expensesRouter mounts the full protected expense surface the way the
// production router does, with a fake repo behind it.
func expensesRouter(t *testing.T, repo *fakeExpensesRepo) *gin.Engine {
	t.Helper()

	r := gin.New()

	h := handlers.NewExpensesHandler(repo, mustTaxonomy(t), nil)
	mw := middlewares.NewAuthMiddleware(staticValidator{})

	protected := r.Group("/", mw.RequireSession())

	protected.POST("/expenses", h.AddExpense)
	protected.GET("/expenses", h.ListExpenses)
	protected.GET("/expenses/search", h.SearchExpenses)
	protected.GET("/expenses/range", h.ListByRange)
	protected.GET("/expenses/summary", h.SummarizeByRange)
	protected.GET("/expenses/:id", h.GetExpenseById)
	protected.PUT("/expenses/:id", h.UpdateExpense)
	protected.DELETE("/expenses/:id", h.DeleteExpense)

	return r
}

func asAlice() map[string]string {
	return map[string]string{"Authorization": "Bearer alice-token"}
}

func TestExpenseEndpointsRequireSession(t *testing.T) {
	r := expensesRouter(t, &fakeExpensesRepo{})

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/expenses", `{"description":"x","amount":1,"category":"Groceries"}`},
		{http.MethodGet, "/expenses", ""},
		{http.MethodGet, "/expenses/search?q=milk", ""},
		{http.MethodGet, "/expenses/range?from=2026-01-01&to=2026-01-31", ""},
		{http.MethodGet, "/expenses/summary?from=2026-01-01&to=2026-01-31", ""},
		{http.MethodGet, "/expenses/some-id", ""},
		{http.MethodPut, "/expenses/some-id", `{"description":"x","amount":1,"category":"Groceries","date":"2026-01-01"}`},
		{http.MethodDelete, "/expenses/some-id", ""},
	}

	for _, rq := range requests {
		for _, header := range []map[string]string{nil, {"Authorization": "Bearer wrong"}} {
			w := doJSON(r, rq.method, rq.path, rq.body, header)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s with header %v: status = %d, want 401", rq.method, rq.path, header, w.Code)
			}
		}
	}
}

func TestAddExpense(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createFn   func(ctx context.Context, userID string, req expense.CreateExpenseRequest) (expense.Expense, error)
		wantStatus int
	}{
		{
			name: "created under the session owner",
			body: `{"description":"weekly shop","amount":42.5,"category":"Groceries","date":"2026-02-10"}`,
			createFn: func(_ context.Context, userID string, req expense.CreateExpenseRequest) (expense.Expense, error) {
				if userID != "alice-id" {
					t.Fatalf("create scoped to %q, want alice-id", userID)
				}
				return expense.NewFromCreateRequest(userID, req), nil
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "zero amount rejected",
			body:       `{"description":"weekly shop","amount":0,"category":"Groceries"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative amount rejected",
			body:       `{"description":"weekly shop","amount":-5,"category":"Groceries"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing description",
			body:       `{"amount":10,"category":"Groceries"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date format",
			body:       `{"description":"x","amount":10,"category":"Groceries","date":"10/02/2026"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown category",
			body:       `{"description":"x","amount":10,"category":"Yacht Upkeep"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "subcategory accepted case-insensitively",
			body:       `{"description":"beans","amount":3.2,"category":"groceries"}`,
			wantStatus: http.StatusCreated,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := expensesRouter(t, &fakeExpensesRepo{createFn: tc.createFn})

			w := doJSON(r, http.MethodPost, "/expenses", tc.body, asAlice())

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestListExpensesPaging(t *testing.T) {
	var gotFilter expense.ListFilter

	repo := &fakeExpensesRepo{
		listFn: func(_ context.Context, userID string, filter expense.ListFilter) ([]expense.Expense, int, error) {
			if userID != "alice-id" {
				t.Fatalf("list scoped to %q", userID)
			}
			gotFilter = filter
			return []expense.Expense{{ID: "e-1"}, {ID: "e-2"}}, 7, nil
		},
	}

	r := expensesRouter(t, repo)

	w := doJSON(r, http.MethodGet, "/expenses?limit=2&offset=4", "", asAlice())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	if gotFilter.Limit != 2 || gotFilter.Offset != 4 {
		t.Fatalf("filter = %+v, want limit 2 offset 4", gotFilter)
	}

	var body struct {
		Count int `json:"count"`
		Total int `json:"total"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid list body: %v", err)
	}

	if body.Count != 2 || body.Total != 7 {
		t.Fatalf("list body = %+v", body)
	}

	// nonsense paging params fall back to defaults, capped at 100
	_ = doJSON(r, http.MethodGet, "/expenses?limit=-3&offset=banana", "", asAlice())

	if gotFilter.Limit != 20 || gotFilter.Offset != 0 {
		t.Fatalf("fallback filter = %+v, want limit 20 offset 0", gotFilter)
	}

	_ = doJSON(r, http.MethodGet, "/expenses?limit=5000", "", asAlice())

	if gotFilter.Limit != 100 {
		t.Fatalf("capped limit = %d, want 100", gotFilter.Limit)
	}
}

func TestSearchExpenses(t *testing.T) {
	var gotFilter expense.ListFilter

	repo := &fakeExpensesRepo{
		listFn: func(_ context.Context, _ string, filter expense.ListFilter) ([]expense.Expense, int, error) {
			gotFilter = filter
			return []expense.Expense{}, 0, nil
		},
	}

	r := expensesRouter(t, repo)

	w := doJSON(r, http.MethodGet, "/expenses/search?q=coffee", "", asAlice())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	if gotFilter.Query == nil || *gotFilter.Query != "coffee" {
		t.Fatalf("filter query = %v, want coffee", gotFilter.Query)
	}

	// missing q is a client error
	w = doJSON(r, http.MethodGet, "/expenses/search", "", asAlice())

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing q: status = %d, want 400", w.Code)
	}
}

func TestListByRangeValidation(t *testing.T) {
	repo := &fakeExpensesRepo{}
	r := expensesRouter(t, repo)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"ok", "/expenses/range?from=2026-01-01&to=2026-01-31", http.StatusOK},
		{"ok with category", "/expenses/range?from=2026-01-01&to=2026-01-31&category=Fuel", http.StatusOK},
		{"missing from", "/expenses/range?to=2026-01-31", http.StatusBadRequest},
		{"missing to", "/expenses/range?from=2026-01-01", http.StatusBadRequest},
		{"garbage from", "/expenses/range?from=January&to=2026-01-31", http.StatusBadRequest},
		{"inverted range", "/expenses/range?from=2026-02-01&to=2026-01-01", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodGet, tc.path, "", asAlice())

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

func TestSummarizeByRange(t *testing.T) {
	repo := &fakeExpensesRepo{
		summarizeFn: func(_ context.Context, userID, from, to string, cat *string) (expense.Summary, error) {
			if userID != "alice-id" || from != "2026-01-01" || to != "2026-01-31" {
				t.Fatalf("summarize called with (%q, %q, %q)", userID, from, to)
			}

			if cat == nil || *cat != "Fuel" {
				t.Fatalf("summarize category = %v, want Fuel", cat)
			}

			return expense.Summary{
				From:       from,
				To:         to,
				Categories: []expense.CategorySummary{{Category: "Fuel", Total: 80, Count: 2}},
				GrandTotal: 80,
				Count:      2,
			}, nil
		},
	}

	r := expensesRouter(t, repo)

	w := doJSON(r, http.MethodGet, "/expenses/summary?from=2026-01-01&to=2026-01-31&category=Fuel", "", asAlice())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var body expense.Summary

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid summary body: %v", err)
	}

	if body.GrandTotal != 80 || body.Count != 2 || len(body.Categories) != 1 {
		t.Fatalf("summary body = %+v", body)
	}
}

func TestGetUpdateDeleteNotFound(t *testing.T) {
	// the fake's zero behaviour is ErrNotFound for all three, which is also
	// what the repo returns when the row belongs to another user
	r := expensesRouter(t, &fakeExpensesRepo{})

	updateBody := `{"description":"x","amount":1,"category":"Groceries","date":"2026-01-01"}`

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/expenses/someone-elses-id", ""},
		{http.MethodPut, "/expenses/someone-elses-id", updateBody},
		{http.MethodDelete, "/expenses/someone-elses-id", ""},
	}

	for _, tc := range tests {
		w := doJSON(r, tc.method, tc.path, tc.body, asAlice())

		if w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: status = %d, want 404; body: %s", tc.method, tc.path, w.Code, w.Body.String())
		}

		if errorCode(t, w) != "not_found" {
			t.Fatalf("%s %s: error code = %q", tc.method, tc.path, errorCode(t, w))
		}
	}
}

func TestUpdateAndDeleteHappyPath(t *testing.T) {
	updated := expense.Expense{ID: "e-1", Description: "renamed", Amount: 9.5, Category: "Fuel", Date: "2026-01-05"}

	repo := &fakeExpensesRepo{
		updateFn: func(_ context.Context, userID, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
			if userID != "alice-id" || id != "e-1" {
				t.Fatalf("update called with (%q, %q)", userID, id)
			}
			return updated, nil
		},
		deleteFn: func(_ context.Context, userID, id string) error {
			if userID != "alice-id" || id != "e-1" {
				t.Fatalf("delete called with (%q, %q)", userID, id)
			}
			return nil
		},
	}

	r := expensesRouter(t, repo)

	w := doJSON(r, http.MethodPut, "/expenses/e-1",
		`{"description":"renamed","amount":9.5,"category":"Fuel","date":"2026-01-05"}`, asAlice())

	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d; body: %s", w.Code, w.Body.String())
	}

	w = doJSON(r, http.MethodDelete, "/expenses/e-1", "", asAlice())

	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d; body: %s", w.Code, w.Body.String())
	}
}

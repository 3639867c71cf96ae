package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"coppia/internal/core"
	"coppia/internal/log"
)

const writeTimeout = 7 * time.Second

// parseBody reads the request body or writes a 400 and returns nil.
func parseBody(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Malformed request body").Write(w)
		return nil
	}
	return p
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, userID string) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	e := core.Expense{
		UserID:      userID,
		Description: p.Get("description"),
		Shared:      p.Bool("shared"),
	}
	var err error
	if e.Amount, err = p.Amount("amount"); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	if e.Category, err = p.Category("category"); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	if e.Date, err = p.Date("date", core.DateOf(s.now())); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}

	if _, err := s.svc.RecordExpense(ctx, e); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	SuccessResponse("expense", "Expense saved: "+core.FormatEuros(e.Amount)).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request, userID string) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	b := core.Budget{UserID: userID}
	var err error
	if b.Category, err = p.Category("category"); err != nil {
		writeServiceError(ctx, w, log.OpUpdate, err)
		return
	}
	if b.Period, err = parsePeriod(p.Get("period"), s.now()); err != nil {
		writeServiceError(ctx, w, log.OpUpdate, err)
		return
	}
	if b.Limit, err = p.OptionalAmount("limit"); err != nil {
		writeServiceError(ctx, w, log.OpUpdate, err)
		return
	}

	if _, err := s.svc.SetBudget(ctx, b); err != nil {
		writeServiceError(ctx, w, log.OpUpdate, err)
		return
	}
	SuccessResponse("budget", "Budget for "+b.Category.String()+" set to "+core.FormatEuros(b.Limit)).Write(w)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request, userID string) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	d := core.Debt{UserID: userID, Name: p.Get("name")}
	var err error
	if d.TotalAmount, err = p.Amount("total_amount"); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	if d.MonthlyPayment, err = p.Amount("monthly_payment"); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	if d.DueDay, err = p.Int("due_day"); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	if d.StartDate, err = p.Date("start_date", core.DateOf(s.now())); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}

	if _, err := s.svc.AddDebt(ctx, d); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	SuccessResponse("debt", "Debt tracked: "+d.Name).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, userID string) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	g := core.Goal{UserID: userID, Name: p.Get("name"), Primary: p.Bool("primary")}
	var err error
	if g.TargetAmount, err = p.Amount("target_amount"); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	if g.CurrentAmount, err = p.OptionalAmount("current_amount"); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	if g.Deadline, err = p.Date("deadline", core.Date{}); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}

	if _, err := s.svc.AddGoal(ctx, g); err != nil {
		writeServiceError(ctx, w, log.OpCreate, err)
		return
	}
	SuccessResponse("goal", "Goal created: "+g.Name).Write(w)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request, userID string) {
	p := parseBody(w, r)
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	goalID, err := p.ID("goal_id")
	if err != nil {
		writeServiceError(ctx, w, log.OpContribute, err)
		return
	}
	amount, err := p.Amount("amount")
	if err != nil {
		writeServiceError(ctx, w, log.OpContribute, err)
		return
	}

	g, err := s.svc.Contribute(ctx, userID, goalID, amount)
	if err != nil {
		writeServiceError(ctx, w, log.OpContribute, err)
		return
	}
	SuccessResponse("contribution", "Added "+core.FormatEuros(amount)+" to "+g.Name).
		Header("X-Goal-ID", strconv.FormatInt(g.ID, 10)).
		Write(w)
}

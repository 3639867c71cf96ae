package http

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"coppia/internal/core"
	"coppia/internal/finance"
	"coppia/internal/log"
	"coppia/internal/services"
)

const readTimeout = 7 * time.Second

// formatPercent truncates to one decimal so 69.96 shows as 69.9%, never as
// the 70.0% of the next tier.
func formatPercent(d decimal.Decimal) string {
	return d.Truncate(1).StringFixed(1) + "%"
}

var templateFuncs = template.FuncMap{
	"euros": core.FormatEuros,
	"pct":   formatPercent,
	"date": func(d core.Date) string {
		if d.IsZero() {
			return "-"
		}
		return d.Format("02/01/2006")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("02/01/2006 15:04")
	},
	"tier": func(t finance.StatusTier) string {
		return "tier--" + string(t)
	},
}

type indexData struct {
	services.Dashboard
	Categories  []core.Category
	TodayValue  string
	PeriodValue string
	Panel       achievementsData
}

type achievementsData struct {
	Items  []services.AchievementView
	Earned int
	Total  int
}

// render executes name into a buffer first so a failing template never
// leaves a half-written page.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentTemplate).ErrorContext(ctx, "Template execution failed",
			"template", name, log.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Could not render page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	now := s.now()
	d, err := s.svc.Dashboard(ctx, userID, now)
	if err != nil {
		writeServiceError(ctx, w, log.OpRead, err)
		return
	}
	s.render(ctx, w, "index.html", indexData{
		Dashboard:   d,
		Categories:  core.Categories,
		TodayValue:  d.Today.String(),
		PeriodValue: d.Period.String(),
		Panel: achievementsData{
			Items:  d.Achievements,
			Earned: d.EarnedCount,
			Total:  len(d.Achievements),
		},
	})
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	period, err := parsePeriod(r.URL.Query().Get("period"), s.now())
	if err != nil {
		writeServiceError(ctx, w, log.OpRead, err)
		return
	}
	summary, err := s.svc.BudgetStatus(ctx, userID, period)
	if err != nil {
		writeServiceError(ctx, w, log.OpRead, err)
		return
	}
	s.render(ctx, w, "budget_status", summary)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	views, earned, err := s.svc.Achievements(ctx, userID)
	if err != nil {
		writeServiceError(ctx, w, log.OpRead, err)
		return
	}
	s.render(ctx, w, "achievements", achievementsData{Items: views, Earned: earned, Total: len(views)})
}

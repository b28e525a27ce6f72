package fakeapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

func (s *Server) listExpenses(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listExpenses(currentUser(c).ID))
}

func (s *Server) currentMonth(c *gin.Context) {
	month := core.DateOf(s.now()).MonthKey()
	out := []core.Expense{}
	for _, e := range s.store.listExpenses(currentUser(c).ID) {
		if e.ExpenseDate.MonthKey() == month {
			out = append(out, e)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}
	e, found := s.store.expense(currentUser(c).ID, id)
	if !found {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) createExpense(c *gin.Context) {
	in, ok := bindExpense(c)
	if !ok {
		return
	}
	e, err := s.store.createExpense(currentUser(c).ID, in, s.now())
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	fields := log.NewFields().WithOperation(log.OpCreate).WithExpense(e.ID)
	fields[log.FieldCategory] = e.Category
	s.logger.InfoContext(c.Request.Context(), "Expense created", fields.ToSlice()...)
	c.JSON(http.StatusOK, e)
}

func (s *Server) updateExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}
	in, ok := bindExpense(c)
	if !ok {
		return
	}
	e, err := s.store.updateExpense(currentUser(c).ID, id, in, s.now())
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.InfoContext(c.Request.Context(), "Expense updated",
		log.NewFields().WithOperation(log.OpUpdate).WithExpense(e.ID).ToSlice()...)
	c.JSON(http.StatusOK, e)
}

func (s *Server) deleteExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}
	if err := s.store.deleteExpense(currentUser(c).ID, id); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.InfoContext(c.Request.Context(), "Expense deleted",
		log.NewFields().WithOperation(log.OpDelete).WithExpense(id).ToSlice()...)
	message(c, "Expense deleted successfully")
}

func (s *Server) statistics(c *gin.Context) {
	c.JSON(http.StatusOK, computeStatistics(s.store.listExpenses(currentUser(c).ID), s.now()))
}

func (s *Server) categoryChart(c *gin.Context) {
	out := core.CategoryTotals{}
	for _, e := range s.store.listExpenses(currentUser(c).ID) {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) monthlyChart(c *gin.Context) {
	out := core.MonthlyTotals{}
	for _, e := range s.store.listExpenses(currentUser(c).ID) {
		key := e.ExpenseDate.MonthKey()
		out[key] = out[key].Add(e.Amount)
	}
	c.JSON(http.StatusOK, out)
}

func expenseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid expense id")
		return 0, false
	}
	return id, true
}

func bindExpense(c *gin.Context) (core.ExpenseInput, bool) {
	var in core.ExpenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return in, false
	}
	if err := in.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return in, false
	}
	return in.Normalized(), true
}

// computeStatistics mirrors the server aggregate: the average is rounded half
// up to two places and is zero for an empty collection.
func computeStatistics(expenses []core.Expense, now time.Time) core.Statistics {
	month := core.DateOf(now).MonthKey()
	stats := core.Statistics{
		TotalExpenses:     core.Sum(expenses),
		CurrentMonthTotal: decimal.Zero,
		TotalCount:        int64(len(expenses)),
		AverageExpense:    decimal.Zero,
	}
	for _, e := range expenses {
		if e.ExpenseDate.MonthKey() == month {
			stats.CurrentMonthTotal = stats.CurrentMonthTotal.Add(e.Amount)
		}
	}
	if stats.TotalCount > 0 {
		stats.AverageExpense = stats.TotalExpenses.DivRound(decimal.NewFromInt(stats.TotalCount), 2)
	}
	return stats
}

package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/present"
	"expensetracker/internal/viewstate"
)

func runList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("list", e)
	category := fs.String("category", "All", "Show only this category")
	month := fs.Bool("month", false, "Only expenses dated this month")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := core.ParseFilter(*category)
	if err != nil {
		return err
	}

	if *month {
		list, err := e.app.Expenses.CurrentMonth(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(e.stdout, e.app.Renderer.ExpenseList(list, viewstate.Derive(list, filter), filter))
		return nil
	}

	ctrl := e.app.Controller
	if err := ctrl.LoadExpenses(ctx); err != nil {
		return err
	}
	ctrl.SetFilter(filter)
	snap := ctrl.Snapshot()
	fmt.Fprint(e.stdout, e.app.Renderer.ExpenseList(snap.Expenses, snap.View, snap.Filter))
	return nil
}

func runShow(ctx context.Context, e *env, args []string) error {
	id, err := parseID("show", args)
	if err != nil {
		return err
	}
	exp, err := e.app.Expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprint(e.stdout, e.app.Renderer.Expense(exp))
	return nil
}

// expenseFlags registers the editable fields shared by add and edit.
type expenseFlags struct {
	title       *string
	amount      *string
	category    *string
	date        *string
	description *string
}

func newExpenseFlags(fs *flag.FlagSet) expenseFlags {
	return expenseFlags{
		title:       fs.String("title", "", "Title"),
		amount:      fs.String("amount", "", "Amount, e.g. 12.50"),
		category:    fs.String("category", "", "Category (default General)"),
		date:        fs.String("date", "", "Date as YYYY-MM-DD (default today)"),
		description: fs.String("description", "", "Description"),
	}
}

// apply overwrites the fields of in whose flags were set on the command line.
func (f expenseFlags) apply(fs *flag.FlagSet, in *core.ExpenseInput) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "title":
			in.Title = *f.title
		case "description":
			in.Description = *f.description
		case "amount":
			in.Amount, err = core.ParseAmount(*f.amount)
		case "category":
			in.Category, err = core.ParseCategory(*f.category)
		case "date":
			in.ExpenseDate, err = core.ParseDate(*f.date)
		}
	})
	return err
}

func runAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("add", e)
	flags := newExpenseFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := core.ExpenseInput{Category: core.General, ExpenseDate: core.DateOf(time.Now())}
	if err := flags.apply(fs, &in); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	created, err := e.app.Controller.AddExpense(ctx, in.Normalized())
	if err != nil {
		return err
	}
	reportSuccess(e)
	fmt.Fprint(e.stdout, e.app.Renderer.Expense(created))
	return nil
}

func runEdit(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("edit", e)
	flags := newExpenseFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("edit", fs.Args())
	if err != nil {
		return err
	}
	if fs.NFlag() == 0 {
		return fmt.Errorf("nothing to change: pass at least one of -title, -amount, -category, -date, -description")
	}

	current, err := e.app.Expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	in := current.Input()
	if err := flags.apply(fs, &in); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	updated, err := e.app.Controller.EditExpense(ctx, id, in.Normalized())
	if err != nil {
		return err
	}
	reportSuccess(e)
	fmt.Fprint(e.stdout, e.app.Renderer.Expense(updated))
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("delete", e)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID("delete", fs.Args())
	if err != nil {
		return err
	}
	if !*yes {
		ok, err := e.confirm(fmt.Sprintf("Are you sure you want to delete expense #%d?", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(e.stdout, "Cancelled")
			return nil
		}
	}

	if err := e.app.Controller.RemoveExpense(ctx, id); err != nil {
		return err
	}
	reportSuccess(e)
	return nil
}

func runStats(ctx context.Context, e *env, _ []string) error {
	ctrl := e.app.Controller
	ctrl.LoadStatistics(ctx)
	snap := ctrl.Snapshot()
	if snap.Statistics == nil {
		fmt.Fprintln(e.stderr, present.ErrorAlert("Statistics are unavailable"))
	}
	fmt.Fprintln(e.stdout, e.app.Renderer.Cards(snap.Statistics))
	return nil
}

func runCharts(ctx context.Context, e *env, _ []string) error {
	report := e.app.Analytics.Load(ctx)
	r := e.app.Renderer

	fmt.Fprintln(e.stdout, r.Cards(report.Statistics))
	fmt.Fprintln(e.stdout)
	if report.CategoryError != "" {
		fmt.Fprintln(e.stdout, present.ErrorAlert(report.CategoryError))
	} else {
		fmt.Fprintln(e.stdout, r.CategoryChart(report.Categories))
	}
	if report.MonthlyError != "" {
		fmt.Fprintln(e.stdout, present.ErrorAlert(report.MonthlyError))
	} else {
		fmt.Fprintln(e.stdout, r.MonthlyChart(report.Monthly))
	}
	return nil
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("export", e)
	category := fs.String("category", "All", "Export only this category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := core.ParseFilter(*category)
	if err != nil {
		return err
	}

	exporter, err := e.app.Exporter(ctx)
	if err != nil {
		return err
	}
	list, err := e.app.Expenses.ListAll(ctx)
	if err != nil {
		return err
	}
	n, err := exporter.Export(ctx, viewstate.Derive(list, filter))
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintln(e.stdout, present.SuccessAlert(fmt.Sprintf("Exported %s", present.CountLabel(n))))
	return nil
}

func reportSuccess(e *env) {
	ctrl := e.app.Controller
	if msg := ctrl.Snapshot().LastSuccess; msg != "" {
		fmt.Fprintln(e.stdout, present.SuccessAlert(msg))
		ctrl.ClearSuccess()
	}
	// A failed refresh after a successful write is reported but not fatal.
	if msg := ctrl.Snapshot().LastError; msg != "" {
		fmt.Fprintln(e.stderr, present.ErrorAlert(msg))
		ctrl.ClearError()
	}
}

func parseID(cmd string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s <id>", cmd)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", args[0])
	}
	return id, nil
}

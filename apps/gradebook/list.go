package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/trezcool/gradebook/core/grade"
)

func (cli *commandLine) list(ctx context.Context, args []string) error {
	var vf viewFlags
	fs := cli.newFlagSet("list")
	vf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := vf.validate(); err != nil {
		return err
	}

	view, err := cli.newView(vf.query(), false, 0)
	if err != nil {
		return err
	}
	defer view.Close()

	vf.apply(view)
	if err = view.Load(ctx); err != nil {
		return err
	}
	return printGrades(cli.out, view.Visible())
}

func (cli *commandLine) watch(ctx context.Context, args []string) error {
	var vf viewFlags
	fs := cli.newFlagSet("watch")
	vf.register(fs)
	autoRefresh := fs.Bool("refresh", cli.conf.Sync.AutoRefresh, "Reload the grades every interval.")
	interval := fs.Duration("interval", cli.conf.Sync.RefreshInterval, "Time between two refreshes.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := vf.validate(); err != nil {
		return err
	}

	view, err := cli.newView(vf.query(), *autoRefresh, *interval)
	if err != nil {
		return err
	}
	defer view.Close()

	vf.apply(view)
	view.OnChange(func() {
		fmt.Fprintf(cli.out, "\n-- %s\n", time.Now().Format("15:04:05"))
		if err := printGrades(cli.out, view.Visible()); err != nil {
			cli.logger.Error("printing grades", err)
		}
	})
	// a failed first load is notified; the timer, when enabled, keeps trying
	_ = view.Load(ctx)

	<-ctx.Done()
	return nil
}

func printGrades(out io.Writer, grades []grade.Grade) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT\tSUBJECT\tTYPE\tSCORE\tPERCENT\tGRADED\tFEEDBACK")
	for _, g := range grades {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s/%s\t%.1f%%\t%s\t%s\n",
			g.ID,
			g.Student.Name,
			g.Subject,
			g.Type(),
			formatScore(g.Score),
			formatScore(g.MaxScore),
			g.Percentage(),
			g.GradedAt.Format("2006-01-02 15:04"),
			g.Feedback,
		)
	}
	if len(grades) == 0 {
		fmt.Fprintln(w, "(no grades)")
	}
	return w.Flush()
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

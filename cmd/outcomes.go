package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/platform-resolver/internal/model"
)

var outcomesLimit int

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "List recent resolutions from the resolution log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return runOutcomes(ctx, st, outcomesLimit, os.Stdout)
	},
}

func init() {
	outcomesCmd.Flags().IntVar(&outcomesLimit, "limit", 20, "number of resolutions to show")
	rootCmd.AddCommand(outcomesCmd)
}

type outcomeLister interface {
	ListOutcomes(ctx context.Context, limit int) ([]model.ResolutionOutcome, error)
}

func runOutcomes(ctx context.Context, l outcomeLister, limit int, out io.Writer) error {
	outcomes, err := l.ListOutcomes(ctx, limit)
	if err != nil {
		return eris.Wrap(err, "outcomes")
	}
	if len(outcomes) == 0 {
		_, _ = fmt.Fprintln(out, "No resolutions recorded.")
		return nil
	}
	formatOutcomes(out, outcomes)
	return nil
}

func formatOutcomes(out io.Writer, outcomes []model.ResolutionOutcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tBUSINESS\tCACHED\tCALLS\tDURATION\tCREATED\tRESOLVED")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t-----\t--------\t-------\t--------")

	for _, o := range outcomes {
		name := o.BusinessName
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		id := o.ID
		if len(id) > 8 {
			id = id[:8]
		}
		resolved := make([]string, len(o.Resolved))
		for i, k := range o.Resolved {
			resolved[i] = string(k)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%s\t%s\t%s\n",
			id,
			name,
			o.Cached,
			o.Telemetry.Total,
			o.Duration.Round(time.Millisecond),
			o.CreatedAt.Format("2006-01-02 15:04"),
			strings.Join(resolved, ","),
		)
	}
	_ = w.Flush()
}

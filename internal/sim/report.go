package sim

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// WriteReport prints reports as an aligned table.
func WriteReport(w io.Writer, reports []TaskReport, ticks int64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPOLICY\tGROUP\tWEIGHT\tTICKS\tSHARE\tRUNTIME\tSWITCHES\tBURSTS\tSTATE")
	for _, r := range reports {
		share := 0.0
		if ticks > 0 {
			share = 100 * float64(r.RanTicks) / float64(ticks)
		}
		state := "running"
		if r.Finished {
			state = fmt.Sprintf("finished@%s", humanize.Comma(r.FinishTick))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%.1f%%\t%s\t%s\t%d\t%s\n",
			r.ID,
			r.Name,
			r.Policy,
			r.Group,
			r.Weight,
			humanize.Comma(r.RanTicks),
			share,
			time.Duration(r.Runtime),
			humanize.Comma(int64(r.Switches)),
			r.Bursts,
			state,
		)
	}
	return tw.Flush()
}

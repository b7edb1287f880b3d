package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/canalwatch/icewatch/internal/constants"
	"github.com/canalwatch/icewatch/internal/dashboard"
	"github.com/canalwatch/icewatch/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Base URL of the icewatch server")
	interval := flag.Duration("interval", constants.DefaultRefreshSeconds*time.Second, "Refresh interval")
	limit := flag.Int("limit", constants.DefaultHistoryLimit, "History points per location")
	once := flag.Bool("once", false, "Print one snapshot and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := dashboard.NewPoller(dashboard.NewClient(*baseURL, nil), *limit)
	clearScreen := isatty.IsTerminal(os.Stdout.Fd()) && !*once

	if *once {
		snap, err := poller.Refresh(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
			os.Exit(1)
		}
		render(os.Stdout, snap, time.Now())
		return
	}

	poller.Run(ctx, *interval, func(snap dashboard.Snapshot, err error) {
		if err != nil {
			// keep the last table on screen
			fmt.Fprintf(os.Stderr, "%s refresh failed: %v\n", time.Now().Format(time.TimeOnly), err)
			return
		}
		if clearScreen {
			fmt.Print("\033[H\033[2J")
		}
		render(os.Stdout, snap, time.Now())
	})
}

func render(out io.Writer, snap dashboard.Snapshot, now time.Time) {
	fmt.Fprintf(out, "Overall: %s    (updated %s)\n\n", snap.Overall, snap.FetchedAt.Format(time.TimeOnly))

	byName := make(map[string]types.Reading, len(snap.Latest))
	for _, r := range snap.Latest {
		byName[r.Location] = r
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tICE (cm)\tSURFACE (°C)\tSNOW (cm)\tSTATUS\tTREND (cm)\tWINDOW END")
	for _, loc := range snap.Locations {
		r, ok := byName[loc.Name]
		if !ok {
			fmt.Fprintf(w, "%s\t-\t-\t-\tno data\t-\t-\n", loc.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%s\t%s\t%s\n",
			loc.Name,
			r.AvgIceThickness,
			r.AvgSurfaceTemperature,
			r.AvgSnowAccumulation,
			r.SafetyStatus,
			iceChange(snap.Chart, loc.Name),
			humanize.RelTime(r.WindowEndTime, now, "ago", "from now"),
		)
	}
	w.Flush()

	if snap.ChartErr != nil {
		fmt.Fprintf(out, "\nhistory unavailable: %v\n", snap.ChartErr)
	}
}

// iceChange is the difference between the first and last charted ice values
func iceChange(cd dashboard.ChartData, location string) string {
	var first, last *float64
	for _, v := range cd.Ice[location] {
		if v == nil {
			continue
		}
		if first == nil {
			first = v
		}
		last = v
	}
	if first == nil || last == first {
		return "-"
	}
	return fmt.Sprintf("%+.1f", *last-*first)
}

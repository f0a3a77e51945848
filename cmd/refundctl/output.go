package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/polkiloo/refundstatus/internal/refund"
)

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✓ "+format+"\n", args...)
}

func printSnapshot(w io.Writer, snap *refund.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tax year:\t%d\n", snap.TaxYear)
	fmt.Fprintf(tw, "Status:\t%s\n", snap.Status)
	fmt.Fprintf(tw, "Last updated:\t%s\n", formatTime(snap.LastUpdatedAt))
	if snap.ExpectedAmount != nil {
		fmt.Fprintf(tw, "Expected amount:\t$%.2f\n", *snap.ExpectedAmount)
	}
	if snap.TrackingID != nil {
		fmt.Fprintf(tw, "Tracking id:\t%s\n", *snap.TrackingID)
	}
	if snap.AvailableAtEstimated != nil {
		fmt.Fprintf(tw, "Estimated available:\t%s\n", formatTime(*snap.AvailableAtEstimated))
	}
	_ = tw.Flush()
	if snap.AIExplanation != nil && strings.TrimSpace(*snap.AIExplanation) != "" {
		fmt.Fprintf(w, "\n%s\n", *snap.AIExplanation)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04 MST")
}

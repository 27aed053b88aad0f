package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ternarybob/todayvn/internal/models"
)

func printRun(w io.Writer, run *models.RunRecord) {
	fmt.Fprintf(w, "run %s (%s) %s\n", run.RunID, run.TargetDate, run.Status)
	if run.VideoID != "" {
		fmt.Fprintf(w, "video https://www.youtube.com/watch?v=%s\n", run.VideoID)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tELAPSED\tARTIFACT\tERROR")
	for _, stage := range run.Stages {
		elapsed := "-"
		if stage.FinishedAt != nil {
			elapsed = stage.FinishedAt.Sub(stage.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", stage.Stage, stage.Status, elapsed, stage.Artifact, stage.Error)
	}
	tw.Flush()
}

func printRuns(w io.Writer, runs []*models.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tDATE\tSTATUS\tVIDEO\tUPDATED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", run.RunID, run.TargetDate, run.Status, run.VideoID, run.UpdatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

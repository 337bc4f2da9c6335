package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/finsights-backend/internal/app"
	"github.com/yungbote/finsights-backend/internal/platform/shutdown"
	"github.com/yungbote/finsights-backend/internal/services"
)

func main() {
	var days, limit int
	var dryRun bool
	flag.IntVar(&days, "days", -1, "delete records created more than this many days ago (default from config)")
	flag.IntVar(&limit, "limit", 0, "stop after this many records (0 = no limit)")
	flag.BoolVar(&dryRun, "dry-run", false, "report matching records without deleting anything")
	flag.Parse()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if days < 0 {
		days = application.Cfg.Retention.Days
	}
	report, err := application.Services.Retention.Run(ctx, services.RetentionOptions{
		Days:   days,
		Limit:  limit,
		DryRun: dryRun,
	})
	if err != nil {
		application.Log.Error("retention run failed", "error", err)
		application.Close()
		os.Exit(1)
	}

	prefix := ""
	if dryRun {
		prefix = "[dry-run] "
	}
	fmt.Printf("%scutoff=%s matched=%d deleted=%d artifacts_deleted=%d kept=%d\n",
		prefix, report.Cutoff, report.Matched, report.Deleted, report.ArtifactsDeleted, len(report.Kept))
	for _, id := range report.Kept {
		fmt.Printf("kept %s (artifact cleanup failed)\n", id)
	}
}

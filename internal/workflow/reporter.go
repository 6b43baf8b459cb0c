package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"shipit/internal/logging"
	"shipit/internal/outputsink"
	"shipit/internal/pipeline"
	"shipit/internal/stage"
)

// stageReporter mirrors stage transitions to the sink and the log. It runs
// on the controlling loop.
type stageReporter struct {
	sink   outputsink.Sink
	logger *slog.Logger
}

var _ pipeline.Observer = (*stageReporter)(nil)

func (r *stageReporter) StageStarted(ctx context.Context, name string, index, total int) {
	outputsink.Notice(r.sink, "stage", fmt.Sprintf("%d/%d %s", index+1, total, pipeline.Label(name)))
	logging.WithContext(ctx, r.logger).Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("index", index+1),
		logging.Int("total", total),
	)
}

func (r *stageReporter) StageFinished(ctx context.Context, res stage.Result) {
	logger := logging.WithContext(ctx, r.logger)
	if res.ExitCode != nil {
		outputsink.ExitCode(r.sink, res.Stage, res.Success, *res.ExitCode)
	}
	if !res.Success {
		outputsink.Error(r.sink, res.Stage, res.Diagnostic())
		logger.Warn("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("failure", res.Failure.String()),
			logging.String("diagnostic", res.Diagnostic()),
			logging.Duration("elapsed", res.Elapsed),
			logging.Error(res.Err),
			logging.String(logging.FieldImpact, "later stages are skipped unless marked always-run"),
		)
		return
	}
	if res.Note != "" {
		outputsink.Info(r.sink, res.Stage, res.Note)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", res.Elapsed),
		logging.Int("count", res.Count),
	)
}

package fsops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"shipit/internal/logging"
	"shipit/internal/outputsink"
	"shipit/internal/services"
	"shipit/internal/stage"
)

// Options controls a filesystem action.
type Options struct {
	Simulate bool
	Sink     outputsink.Sink
	Logger   *slog.Logger
	// Remove deletes a directory tree. Defaults to os.RemoveAll.
	Remove func(path string) error
}

func (o Options) sink() outputsink.Sink {
	if o.Sink == nil {
		return outputsink.Discard
	}
	return o.Sink
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

const (
	deletePrefix = "delete"
	copyPrefix   = "copy"
)

// DeleteDirectories removes each existing directory in order. Missing
// directories are skipped. The first failed removal stops the action and is
// returned; its Note names the error type and message.
func DeleteDirectories(ctx context.Context, dirs []string, opts Options) (stage.Outcome, error) {
	sink := opts.sink()
	logger := logging.WithContext(ctx, opts.logger())
	remove := opts.Remove
	if remove == nil {
		remove = os.RemoveAll
	}

	var deleted, found int
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return stage.Outcome{Count: deleted, Note: services.Describe(err)}, err
		}
		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err == nil && !info.IsDir() {
			continue
		}
		if err != nil {
			return failDelete(sink, logger, dir, deleted, err)
		}
		if opts.Simulate {
			found++
			sink.AddLine(deletePrefix, fmt.Sprintf("-folder %s found", dir), outputsink.ColorGray, outputsink.ColorYellow)
			continue
		}
		sink.AddLine(deletePrefix, fmt.Sprintf("folder %s", dir), outputsink.ColorGray, outputsink.ColorDefault)
		if err := remove(dir); err != nil {
			return failDelete(sink, logger, dir, deleted, err)
		}
		deleted++
		sink.AddLine(deletePrefix, fmt.Sprintf("folder %s deleted", dir), outputsink.ColorGray, outputsink.ColorDefault)
		logger.Info("directory deleted", logging.String("path", dir), logging.String(logging.FieldEventType, "directory_deleted"))
	}

	switch {
	case found > 0:
		return stage.Outcome{Note: fmt.Sprintf("simulated, %d folders would be deleted", found)}, nil
	case deleted == 0:
		sink.AddLine(deletePrefix, "-Everything is deleted already", outputsink.ColorGray, outputsink.ColorGreen)
		return stage.Outcome{Note: "nothing to do"}, nil
	default:
		return stage.Outcome{Count: deleted, Note: fmt.Sprintf("deleted %d folders", deleted)}, nil
	}
}

func failDelete(sink outputsink.Sink, logger *slog.Logger, dir string, deleted int, err error) (stage.Outcome, error) {
	note := services.Describe(err)
	sink.AddLine(deletePrefix, "delete failed: "+note, outputsink.ColorRed, outputsink.ColorRed)
	logging.WarnWithContext(logger, "directory delete failed", "directory_delete_failed",
		logging.String("path", dir),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "close programs that hold files in the project folder"),
		logging.String(logging.FieldImpact, "remaining folders were not deleted"),
	)
	return stage.Outcome{Count: deleted, Note: note}, err
}

// Pair is one source to destination file copy.
type Pair struct {
	From string
	To   string
}

// CopyOptions extends Options for CopyFiles.
type CopyOptions struct {
	Options
	// CreateDirs creates missing destination directories.
	CreateDirs bool
}

// CopyFiles copies each pair in order, stopping at the first failure.
func CopyFiles(ctx context.Context, pairs []Pair, opts CopyOptions) (stage.Outcome, error) {
	sink := opts.sink()
	logger := logging.WithContext(ctx, opts.logger())

	if len(pairs) == 0 {
		sink.AddLine(copyPrefix, "-no files to copy", outputsink.ColorGray, outputsink.ColorDefault)
		return stage.Outcome{Note: "nothing to do"}, nil
	}

	copied := 0
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return stage.Outcome{Count: copied, Note: services.Describe(err)}, err
		}
		if _, err := os.Stat(pair.From); err != nil {
			return failCopy(sink, logger, pair, copied, err)
		}
		dir := filepath.Dir(pair.To)
		if _, err := os.Stat(dir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || !opts.CreateDirs {
				return failCopy(sink, logger, pair, copied, err)
			}
			if opts.Simulate {
				sink.AddLine(copyPrefix, fmt.Sprintf("-create folder %s", dir), outputsink.ColorGray, outputsink.ColorYellow)
			} else if err := os.MkdirAll(dir, 0o755); err != nil {
				return failCopy(sink, logger, pair, copied, err)
			}
		}
		if opts.Simulate {
			sink.AddLine(copyPrefix, fmt.Sprintf("-copy %s to %s", pair.From, pair.To), outputsink.ColorGray, outputsink.ColorYellow)
			continue
		}
		if err := CopyFile(pair.From, pair.To); err != nil {
			return failCopy(sink, logger, pair, copied, err)
		}
		copied++
		sink.AddLine(copyPrefix, fmt.Sprintf("copy %s to %s", pair.From, pair.To), outputsink.ColorGray, outputsink.ColorDefault)
	}
	if opts.Simulate {
		return stage.Outcome{Note: fmt.Sprintf("simulated, %d files would be copied", len(pairs))}, nil
	}
	logger.Info("files copied", logging.Int("count", copied), logging.String(logging.FieldEventType, "files_copied"))
	return stage.Outcome{Count: copied, Note: fmt.Sprintf("copied %d files", copied)}, nil
}

func failCopy(sink outputsink.Sink, logger *slog.Logger, pair Pair, copied int, err error) (stage.Outcome, error) {
	note := services.Describe(err)
	sink.AddLine(copyPrefix, "copy failed: "+note, outputsink.ColorRed, outputsink.ColorRed)
	logging.WarnWithContext(logger, "file copy failed", "file_copy_failed",
		logging.String("from", pair.From),
		logging.String("to", pair.To),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check copy_files in shipit.yaml and that the secret folder is reachable"),
	)
	return stage.Outcome{Count: copied, Note: note}, err
}

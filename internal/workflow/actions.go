package workflow

import (
	"context"
	"fmt"
	"path/filepath"

	"shipit/internal/history"
	"shipit/internal/outputsink"
	"shipit/internal/project"
	"shipit/internal/stage"
	"shipit/internal/version"
)

const (
	updatePrefix = "update"
	postPrefix   = "post"
)

func reloadAction(env *Env) stage.Action {
	return func(ctx context.Context) (stage.Outcome, error) {
		if env.Reload == nil {
			return stage.Outcome{Note: "nothing to do"}, nil
		}
		p, err := env.Reload(ctx)
		if err != nil {
			return stage.Outcome{}, err
		}
		return stage.Outcome{Count: 1, Note: p.Summary()}, nil
	}
}

// updateAction bumps the bundle version, derives the product version from
// it, and stamps the build-info file.
func updateAction(env *Env) stage.Action {
	p := env.Project
	sink := env.Sink
	return func(ctx context.Context) (stage.Outcome, error) {
		today := env.now()
		outputsink.Info(sink, ">"+updatePrefix, fmt.Sprintf("update %s in %s", p.Version.ProductName, p.Dir))
		outputsink.Info(sink, ">"+updatePrefix, "today is "+today.Format("2006-01-02 15:04"))

		rel, err := version.Next(p.Version.ProductVersion, p.Version.BundleVersion, today)
		if err != nil {
			return stage.Outcome{}, err
		}
		summary := version.CommitMessage(rel.Product, rel.Bundle)

		if env.Simulate {
			if rel.ProductChanged() {
				outputsink.Info(sink, "."+updatePrefix, fmt.Sprintf("-update ProductVersion %s <- %s", rel.PreviousProduct, rel.Product))
			}
			outputsink.Info(sink, "."+updatePrefix, fmt.Sprintf("-update BundleVersion %s <- %s", rel.PreviousBundle, rel.Bundle))
			if p.Settings.BuildInfoFile != "" {
				outputsink.Info(sink, "."+updatePrefix, "-update BuildProperties "+p.Settings.BuildInfoFile)
			}
			return stage.Outcome{Note: "simulated, " + summary}, nil
		}

		changed := 0
		written, err := project.WriteVersionFile(p.VersionFilePath(), rel.Product, rel.Bundle)
		if err != nil {
			return stage.Outcome{}, err
		}
		if written {
			changed++
			if rel.ProductChanged() {
				outputsink.Info(sink, "."+updatePrefix, fmt.Sprintf("update ProductVersion %s <- %s", rel.PreviousProduct, rel.Product))
			}
			outputsink.Info(sink, "."+updatePrefix, fmt.Sprintf("update BundleVersion %s <- %s", rel.PreviousBundle, rel.Bundle))
		} else {
			outputsink.Info(sink, "."+updatePrefix, "Did not update ProjectSettingsFile, it is same")
		}

		if path := p.BuildInfoPath(); path != "" {
			stamped, err := project.UpdateBuildInfo(path, today, rel.Bundle)
			if err != nil {
				return stage.Outcome{Count: changed}, err
			}
			if stamped {
				changed++
				outputsink.Info(sink, "."+updatePrefix, "update BuildProperties "+p.Settings.BuildInfoFile)
			} else {
				outputsink.Info(sink, "."+updatePrefix, fmt.Sprintf("Did not update BuildProperties %s, it is same", p.Settings.BuildInfoFile))
			}
		}

		outputsink.Info(sink, ">"+updatePrefix, "Update done")
		if env.Reload != nil {
			if _, err := env.Reload(ctx); err != nil {
				return stage.Outcome{Count: changed}, err
			}
		}
		return stage.Outcome{Count: changed, Note: summary}, nil
	}
}

// historyAction prepends this build to the WebGL build history and touches
// the hosting page.
func historyAction(env *Env, w *project.WebGL) stage.Action {
	p := env.Project
	sink := env.Sink
	return func(context.Context) (stage.Outcome, error) {
		now := env.now()
		notes := history.ReleaseNotes(p.ReleaseNotesPath(), p.Version.ProductName, p.Version.ProductVersion, now)
		entry := history.NewEntry(p.Settings.DeliveryTrack, now, p.Version.ProductVersion, w.HistoryURL, notes)

		if env.Simulate {
			outputsink.Info(sink, postPrefix, fmt.Sprintf("-history entry %s in %s", entry.Label, w.HistoryJSON))
			if w.HistoryHTML != "" {
				outputsink.Info(sink, postPrefix, "-touch "+w.HistoryHTML)
			}
			return stage.Outcome{Note: "simulated"}, nil
		}

		count, created, err := history.Prepend(w.HistoryJSON, entry)
		if err != nil {
			return stage.Outcome{}, err
		}
		if created {
			outputsink.Info(sink, "."+updatePrefix, "Create directory "+filepath.Dir(w.HistoryJSON))
		}
		outputsink.Info(sink, "."+updatePrefix, fmt.Sprintf("Build history log entries #%d in %s", count, w.HistoryJSON))

		if w.HistoryHTML == "" {
			return stage.Outcome{Count: 1, Note: fmt.Sprintf("%d history entries", count)}, nil
		}
		touched, err := history.TouchHTML(w.HistoryHTML, now)
		if err != nil {
			return stage.Outcome{Count: 1}, err
		}
		if !touched {
			outputsink.Info(sink, postPrefix, "-touch FILE NOT FOUND: "+w.HistoryHTML)
			return stage.Outcome{Count: 1, Note: fmt.Sprintf("%d history entries", count)}, nil
		}
		outputsink.Info(sink, postPrefix, fmt.Sprintf(".touch %s %s", now.Format("2006-01-02 15:04:05"), w.HistoryHTML))
		return stage.Outcome{Count: 2, Note: fmt.Sprintf("%d history entries", count)}, nil
	}
}

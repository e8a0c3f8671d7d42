package output

import (
	"context"
	"fmt"

	"greycells/internal/repair"
	"greycells/internal/sandbox"
	"greycells/internal/util/jsonutil"
)

// ReportFile is the name the run report is stored under.
const ReportFile = "report.json"

// Persist writes the final artifacts of rep and the report itself. The test
// is stored as it was executed, prelude included. It returns the stored
// paths in write order.
func Persist(ctx context.Context, store Store, rep *repair.Report, profile sandbox.Profile) ([]string, error) {
	if rep == nil {
		return nil, fmt.Errorf("output: report is nil")
	}
	var written []string
	put := func(name string, content []byte) error {
		if err := store.Put(ctx, rep.RunID, name, content); err != nil {
			return fmt.Errorf("output: write %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	}

	if rep.Source.Filename != "" {
		if err := put(rep.Source.Filename, []byte(rep.Source.Content)); err != nil {
			return written, err
		}
		if profile.Manifest != "" && len(rep.Source.Packages) > 0 {
			if err := put(profile.Manifest, []byte(sandbox.ManifestContent(rep.Source.Packages))); err != nil {
				return written, err
			}
		}
	}
	if rep.Test.Filename != "" {
		content, err := profile.TestContent(rep.Source, rep.Test)
		if err != nil {
			return written, err
		}
		if err := put(rep.Test.Filename, []byte(content)); err != nil {
			return written, err
		}
	}

	data, err := jsonutil.MarshalNoEscapeIndent(rep, "", "  ")
	if err != nil {
		return written, fmt.Errorf("output: encode report: %w", err)
	}
	if err := put(ReportFile, data); err != nil {
		return written, err
	}
	return written, nil
}

// LoadReport reads back a stored report.
func LoadReport(ctx context.Context, store Store, runID string) (*repair.Report, error) {
	data, err := store.Get(ctx, runID, ReportFile)
	if err != nil {
		return nil, err
	}
	var rep repair.Report
	if err := jsonutil.UnmarshalFlex(data, &rep); err != nil {
		return nil, fmt.Errorf("output: decode report: %w", err)
	}
	return &rep, nil
}

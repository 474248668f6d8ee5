package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/monikutee/video-frames-analysis/pkg/util"
)

// JSONFile writes the run as indented JSON.
type JSONFile struct {
	Path string
}

func (j JSONFile) Name() string { return "json:" + j.Path }

func (j JSONFile) Write(ctx context.Context, run *Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if dir := filepath.Dir(j.Path); dir != "." {
		if err := util.EnsureDir(dir); err != nil {
			return err
		}
	}
	if err := os.WriteFile(j.Path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadJSON loads a report written by JSONFile.
func ReadJSON(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &run, nil
}

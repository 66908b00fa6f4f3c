package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pagetransform/internal/analyzer"
	"pagetransform/internal/mapping"
	"pagetransform/internal/model"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var in input
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print the detected type, layout and content blocks of exported pages",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.analyze(cmd.Context(), in)
		},
	}
	in.register(cmd)
	cmd.Flags().String("mapping", "", "mapping model file used for publishing layouts")
	return cmd
}

type analysisLine struct {
	Page string `json:"page"`
	model.Analysis
	Error string `json:"error,omitempty"`
}

func (a *app) analyze(ctx context.Context, in input) error {
	pages, err := a.readPages(ctx, in)
	if err != nil {
		return err
	}

	var m *mapping.Model
	if path := a.cfg.Defaults.MappingModelFile; path != "" {
		if m, err = mapping.Load(mapping.File(path)); err != nil {
			return err
		}
	}
	opts := analyzer.Options{Model: m, HandleWikiImagesAndVideos: a.cfg.Defaults.HandleWikiImagesAndVideos}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	rejected := 0
	for _, p := range pages {
		res, err := analyzer.Analyze(p, opts)
		line := analysisLine{Page: p.ID(), Analysis: res}
		if err != nil {
			line.Error = err.Error()
			var re *analyzer.RejectedError
			if !errors.As(err, &re) {
				return fmt.Errorf("analyze %s: %w", p.ID(), err)
			}
			rejected++
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write analysis: %w", err)
		}
	}
	if rejected > 0 {
		a.log.Infof("%d of %d pages cannot be transformed", rejected, len(pages))
	}
	return nil
}

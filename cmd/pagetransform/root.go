package main

import (
	"fmt"
	"io"
	"net/http"

	"pagetransform/internal/config"
	"pagetransform/internal/diag"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// flagKeys binds command flags to configuration keys. Flags override the
// config file and environment only when set.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-file":      "log.file",
	"source-site":   "defaults.source_site",
	"source-web":    "defaults.source_web",
	"target-web":    "defaults.target_web",
	"pages-library": "defaults.source_pages_library",
	"prefix":        "defaults.target_page_prefix",
	"folder":        "defaults.target_page_folder",
	"mapping":       "defaults.mapping_model_file",
	"term-mapping":  "defaults.term_mapping_file",
	"user-mapping":  "defaults.user_mapping_file",
	"url-mapping":   "defaults.url_mapping_file",
	"overwrite":     "defaults.overwrite",
	"publish":       "defaults.publish_created_page",
	"post-as-news":  "defaults.post_as_news",
	"sink":          "sink.kind",
	"sink-dir":      "sink.dir",
	"sink-dsn":      "sink.dsn",
	"concurrency":   "batch.concurrency",
}

// app is the state shared by the commands of one invocation.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	httpClient *http.Client

	configPath string
	cfg        config.Run
	log        *log.Logger
	closers    []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pagetransform",
		Short:         "Transform legacy pages into modern pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: pagetransform.{yaml,json} in ./configs or .)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "write JSON logs to this file instead of stderr")

	root.AddCommand(newTransformCmd(a), newAnalyzeCmd(a), newValidateMappingCmd(a))
	return root
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	v := config.NewViper(a.configPath)
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := config.LoadRun(v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closeLog := diag.NewLogger(cfg.Log.Level, cfg.Log.File, a.stderr)
	a.log = logger
	a.closers = append(a.closers, closeLog)
	return nil
}

// usageArgs turns positional argument errors into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

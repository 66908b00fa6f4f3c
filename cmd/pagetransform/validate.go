package main

import (
	"errors"
	"fmt"

	"pagetransform/internal/mapping"

	"github.com/spf13/cobra"
)

func newValidateMappingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-mapping FILE",
		Short: "Load and schema-check a mapping model",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := mapping.Load(mapping.File(args[0]))
			if err != nil {
				var se *mapping.SchemaError
				if errors.As(err, &se) {
					for _, issue := range se.Issues {
						fmt.Fprintf(a.stderr, "error: %s: %s\n", args[0], issue)
					}
					return &exitError{code: 2, err: fmt.Errorf("mapping model %s is invalid", args[0])}
				}
				return err
			}
			fmt.Fprintf(a.stdout, "%s: ok (%d web part mappings)\n", args[0], len(m.Types()))
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		key    string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the architecture spec of a saved canvas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := openStore(cmd.Context(), a.cfg.Storage, a.log)
			if err != nil {
				return err
			}
			defer closeStore()

			st, err := store.Load(cmd.Context(), key)
			if errors.Is(err, architex.ErrStateNotFound) {
				return fmt.Errorf("no canvas saved under %q", key)
			}
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return writeSpec(w, architex.NewArchitectureSpec(*st, time.Now()), format)
		},
	}
	f := cmd.Flags()
	f.StringVar(&key, "key", architex.DefaultStateKey, "workspace key of the saved canvas")
	f.StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	f.StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func writeSpec(w io.Writer, spec architex.ArchitectureSpec, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(spec); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}

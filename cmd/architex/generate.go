package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/jobs"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		key       string
		projectID string
		prompt    string
		detach    bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit a saved canvas for code generation",
		Long: `Loads the canvas stored under --key, submits it as a generation job and
waits for the job to finish. With --detach only the job id is printed;
follow it later with "architex watch <job-id>".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			spec, err := a.loadSpec(ctx, key, projectID)
			if err != nil {
				return err
			}
			if prompt != "" {
				spec.Prompt = prompt
			}

			gen := jobs.NewGenerator(a.client(), a.cfg.Polling.Interval, a.cfg.Polling.MaxAttempts, a.log)
			out := cmd.OutOrStdout()
			if detach {
				id, err := gen.Submit(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, id)
				return nil
			}

			last := architex.JobStatus("")
			job, err := gen.Generate(ctx, spec, func(j architex.Job) {
				if j.Status != last {
					fmt.Fprintf(out, "%s  job %s: %s\n", time.Now().Format("15:04:05"), j.ID, j.Status)
					last = j.Status
				}
			})
			var failed *jobs.FailedError
			if errors.As(err, &failed) {
				return fmt.Errorf("generation failed: %s", failed.Message)
			}
			if err != nil {
				return err
			}
			printResult(out, job)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&key, "key", architex.DefaultStateKey, "workspace key of the saved canvas")
	f.StringVar(&projectID, "project", "", "project id (defaults to the one saved with the canvas)")
	f.StringVar(&prompt, "prompt", "", "override the saved prompt")
	f.BoolVar(&detach, "detach", false, "submit and print the job id without waiting")
	return cmd
}

// loadSpec reads a persisted canvas and builds its job payload. The
// project id is taken from override when valid, else from the canvas.
func (a *app) loadSpec(ctx context.Context, key, override string) (architex.ArchitectureSpec, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := openStore(ctx, a.cfg.Storage, a.log)
	if err != nil {
		return architex.ArchitectureSpec{}, err
	}
	defer closeStore()

	st, err := store.Load(ctx, key)
	if errors.Is(err, architex.ErrStateNotFound) {
		return architex.ArchitectureSpec{}, fmt.Errorf("no canvas saved under %q", key)
	}
	if err != nil {
		return architex.ArchitectureSpec{}, err
	}

	spec := architex.NewArchitectureSpec(*st, time.Now())
	id, err := architex.ResolveProjectID(override, st.ProjectID)
	if err != nil {
		return architex.ArchitectureSpec{}, fmt.Errorf("canvas %q has no valid project id; pass --project", key)
	}
	spec.Metadata.ProjectID = id
	return spec, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
	"github.com/alchemorsel/nutriplan/pkg/errors"
)

// batchFileResult is the output for one requests file
type batchFileResult struct {
	File  string                       `json:"file"`
	Items []handlers.BatchItemResponse `json:"items"`
}

func newBatchCommand(opts *globalOptions) *cobra.Command {
	var (
		files    []string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Optimize every request in one or more JSON request files",
		Long: `Each requests file holds a JSON array of optimize requests in the
HTTP body format. Files are processed concurrently; the requests inside one
file share the optimizer's batch worker pool. Results keep file and request
order.`,
		Example: "  nutriplan-optimize batch --catalog recipes.json --requests monday.json --requests tuesday.json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batches := make([][]inbound.OptimizeCommand, len(files))
			for i, file := range files {
				cmds, err := loadRequests(file)
				if err != nil {
					return err
				}
				batches[i] = cmds
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			results := make([]batchFileResult, len(files))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			for i := range files {
				g.Go(func() error {
					outcomes, err := s.mealPlans.OptimizeBatch(gctx, batches[i])
					if err != nil {
						return fmt.Errorf("%s: %w", files[i], err)
					}
					results[i] = batchFileResult{File: files[i], Items: toBatchItems(outcomes)}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringSliceVar(&files, "requests", nil, "JSON file with an array of optimize requests (repeatable)")
	cmd.Flags().IntVar(&parallel, "parallel", 2, "files processed at the same time")
	_ = cmd.MarkFlagRequired("requests")
	return cmd
}

// loadRequests decodes and validates one requests file
func loadRequests(path string) ([]inbound.OptimizeCommand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reqs []handlers.OptimizeRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%s: no requests", path)
	}

	validate := handlers.NewValidator()
	cmds := make([]inbound.OptimizeCommand, len(reqs))
	for i, req := range reqs {
		if err := validate.Struct(req); err != nil {
			return nil, fmt.Errorf("%s: request %d: %w", path, i, err)
		}
		if cmds[i], err = req.ToCommand(); err != nil {
			return nil, fmt.Errorf("%s: request %d: %w", path, i, err)
		}
	}
	return cmds, nil
}

func toBatchItems(outcomes []inbound.BatchOutcome) []handlers.BatchItemResponse {
	items := make([]handlers.BatchItemResponse, len(outcomes))
	for i, o := range outcomes {
		items[i] = handlers.BatchItemResponse{Plan: inbound.NewPlanDTO(o.Result), Message: o.Message}
		if o.Err != nil {
			items[i].Error = &handlers.BatchItemError{
				Code:    string(errors.GetCode(o.Err)),
				Message: o.Err.Error(),
			}
		}
	}
	return items
}

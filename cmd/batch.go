package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/platform-resolver/internal/cost"
	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resolve"
)

var (
	batchInput       string
	batchOutput      string
	batchConcurrency int
	batchSkipCache   bool
	batchFallbacks   bool
)

// batchFile is the YAML input for the batch command.
type batchFile struct {
	Businesses []model.BusinessIdentity `yaml:"businesses"`
}

type resolveFunc func(ctx context.Context, id model.BusinessIdentity, opts resolve.Options) (*resolve.Result, error)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve every business listed in a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ids, err := readBatchFile(batchInput)
		if err != nil {
			return err
		}

		env, err := initResolver(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out := processBatch(ctx, ids, batchConcurrency, resolve.Options{
			SkipCache:        batchSkipCache,
			IncludeFallbacks: batchFallbacks,
		}, env.Resolver.Resolve, env.Costs)

		if batchOutput == "" {
			return writeBatchOutput(os.Stdout, out, "json")
		}
		f, err := os.Create(batchOutput)
		if err != nil {
			return eris.Wrap(err, "batch: create output")
		}
		defer f.Close() //nolint:errcheck
		return writeBatchOutput(f, out, outputFormat(batchOutput))
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "YAML file with a businesses list")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output file (.json or .yaml); stdout when empty")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 5, "businesses resolved at once")
	batchCmd.Flags().BoolVar(&batchSkipCache, "skip-cache", false, "bypass the cache lookup")
	batchCmd.Flags().BoolVar(&batchFallbacks, "fallbacks", false, "add platform search links for unresolved review sites")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

func readBatchFile(path string) ([]model.BusinessIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "batch: parse input")
	}
	if len(f.Businesses) == 0 {
		return nil, eris.Errorf("batch: no businesses in %s", path)
	}
	return f.Businesses, nil
}

// processBatch resolves ids with bounded concurrency. Output order follows
// input order; a failed business never stops the others.
func processBatch(ctx context.Context, ids []model.BusinessIdentity, concurrency int, opts resolve.Options, fn resolveFunc, costs *cost.Calculator) []resolveOutput {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]resolveOutput, len(ids))
	var done, failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			o := resolveOutput{BusinessName: id.Name}
			res, err := fn(gctx, id, opts)
			if err != nil {
				o.Error = err.Error()
				failed.Add(1)
			} else {
				o.Success = true
				o.Data = res.Set
				o.Cached = res.Cached
				o.Telemetry = res.Telemetry
				o.CostUSD = costs.Estimate(res.Telemetry)
			}
			out[i] = o
			zap.L().Info("batch: business done",
				zap.String("business", id.Name),
				zap.Bool("success", o.Success),
				zap.Int32("done", done.Add(1)),
				zap.Int("total", len(ids)),
			)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch: complete", zap.Int("total", len(ids)), zap.Int32("failed", failed.Load()))
	return out
}

func outputFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

func writeBatchOutput(w io.Writer, out []resolveOutput, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "batch: encode yaml")
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "batch: encode json")
	}
	return nil
}

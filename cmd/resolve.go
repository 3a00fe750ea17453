package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resolve"
)

var (
	resolveName      string
	resolveAddress   string
	resolveWebsite   string
	resolvePlaceID   string
	resolveSkipCache bool
	resolveFallbacks bool
)

// resolveOutput is what the resolve and batch commands print per business.
type resolveOutput struct {
	BusinessName string                  `json:"businessName" yaml:"business_name"`
	Success      bool                    `json:"success" yaml:"success"`
	Data         model.PlatformResultSet `json:"data,omitempty" yaml:"data,omitempty"`
	Error        string                  `json:"error,omitempty" yaml:"error,omitempty"`
	Cached       bool                    `json:"cached" yaml:"cached"`
	Telemetry    model.CallTelemetry     `json:"telemetry" yaml:"telemetry"`
	CostUSD      float64                 `json:"costUsd" yaml:"cost_usd"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve platform URLs for one business and print JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initResolver(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		id := model.BusinessIdentity{
			Name:    resolveName,
			Address: resolveAddress,
			Website: resolveWebsite,
			PlaceID: resolvePlaceID,
		}
		res, err := env.Resolver.Resolve(ctx, id, resolve.Options{
			SkipCache:        resolveSkipCache,
			IncludeFallbacks: resolveFallbacks,
		})
		if err != nil {
			return eris.Wrap(err, "resolve")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resolveOutput{
			BusinessName: id.Name,
			Success:      true,
			Data:         res.Set,
			Cached:       res.Cached,
			Telemetry:    res.Telemetry,
			CostUSD:      env.Costs.Estimate(res.Telemetry),
		})
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveName, "name", "", "business name")
	resolveCmd.Flags().StringVar(&resolveAddress, "address", "", "business address")
	resolveCmd.Flags().StringVar(&resolveWebsite, "website", "", "business website")
	resolveCmd.Flags().StringVar(&resolvePlaceID, "place-id", "", "Google place id")
	resolveCmd.Flags().BoolVar(&resolveSkipCache, "skip-cache", false, "bypass the cache lookup")
	resolveCmd.Flags().BoolVar(&resolveFallbacks, "fallbacks", false, "add platform search links for unresolved review sites")
	_ = resolveCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(resolveCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "platform-resolver",
	Short: "Find a business's review and social platform URLs",
	Long:  "Resolves Google, Facebook, Instagram, Trustpilot, Yell and other platform profiles for a business from its website, web search and inference backends, with verification and caching.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

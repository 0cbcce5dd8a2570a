package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"linkspider/internal/config"
	"linkspider/internal/crawler"
)

func newCrawlCommand(root *rootOptions) *cobra.Command {
	var seeds []string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl from the configured seeds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			for _, s := range seeds {
				cfg.Crawl.Seeds = append(cfg.Crawl.Seeds, config.SeedConfig{URL: s})
			}
			if err := cfg.ValidateForCrawl(); err != nil {
				return err
			}

			ctx := cmd.Context()
			components, err := crawler.Assemble(ctx, cfg, logger)
			if err != nil {
				return err
			}
			engine, err := crawler.NewEngine(cfg, components)
			if err != nil {
				return err
			}
			defer engine.Close()

			runErr := engine.Run(ctx)
			stats := engine.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pages=%d rejected=%d failures=%d targets=%d forbidden=%d out_of_scope=%d uncrawlable=%d robots_blocked=%d\n",
				stats.Pages, stats.Rejected, stats.FetchFailures, stats.Targets,
				stats.Forbidden, stats.OutOfScope, stats.Uncrawlable, stats.RobotsBlocked)
			for _, addr := range stats.Mailboxes {
				fmt.Fprintf(out, "mailbox %s\n", addr)
			}
			return runErr
		},
	}
	cmd.Flags().StringSliceVar(&seeds, "seed", nil, "additional seed URL (repeatable)")
	return cmd
}

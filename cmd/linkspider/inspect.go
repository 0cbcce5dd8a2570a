package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"linkspider/internal/config"
	"linkspider/internal/crawler"
	"linkspider/internal/spider"
	"linkspider/pkg/types"
)

func newInspectCommand(root *rootOptions) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Spider a single URL and print what would be crawled next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if len(cfg.Scope.AllowedDomains) == 0 {
				cfg.Crawl.Seeds = append(cfg.Crawl.Seeds, config.SeedConfig{URL: args[0]})
			}

			components, err := crawler.Assemble(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				for _, closer := range components.Closers {
					_ = closer()
				}
			}()

			result := components.Spider.Process(cmd.Context(), types.FetchTarget{URL: args[0], Depth: depth})
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "depth to treat the URL as being found at")
	return cmd
}

func printResult(w io.Writer, result spider.Result) error {
	report := result.Report
	if result.Page == nil {
		if report.FetchErr == nil {
			return errors.New("nothing fetched")
		}
		return fmt.Errorf("fetch: %w", report.FetchErr)
	}
	fmt.Fprintf(w, "page %s -> %s (%d, %s, %d bytes)\n",
		result.Page.URL, result.Page.FinalURL, result.Page.StatusCode, result.Page.Kind, result.Page.Length)
	if report.ExtractErr != nil {
		fmt.Fprintf(w, "extract error: %v\n", report.ExtractErr)
	}
	for _, link := range report.Filter.Forbidden {
		fmt.Fprintf(w, "forbidden    %s\n", link)
	}
	for _, link := range report.Filter.OutOfScope {
		fmt.Fprintf(w, "out-of-scope %s\n", link)
	}
	for _, link := range report.Filter.Uncrawlable {
		fmt.Fprintf(w, "uncrawlable  %s\n", link)
	}
	for _, res := range result.Resources {
		switch res.Kind {
		case types.ResourceTarget:
			fmt.Fprintf(w, "%-12s %s (depth %d)\n", res.Kind, res.Target.URL, res.Target.Depth)
		case types.ResourceMailbox:
			fmt.Fprintf(w, "%-12s %s\n", res.Kind, res.Mailbox.Address)
		default:
			fmt.Fprintf(w, "%-12s %s (%s)\n", res.Kind, res.URL, res.Reason)
		}
	}
	for _, perr := range report.Build.Malformed {
		fmt.Fprintf(w, "malformed    %s: %v\n", perr.URL, perr.Err)
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/LJTian/FinNewsHub/internal/collector"
	"github.com/LJTian/FinNewsHub/internal/config"
	"github.com/LJTian/FinNewsHub/internal/orchestrator"
	"github.com/LJTian/FinNewsHub/internal/pipeline"
	"github.com/LJTian/FinNewsHub/internal/processor"
	"github.com/LJTian/FinNewsHub/internal/scheduler"
	"github.com/LJTian/FinNewsHub/internal/storage"
	"github.com/spf13/cobra"
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集
func main() {
	if err := collectCMD().Execute(); err != nil {
		os.Exit(1)
	}
}

func collectCMD() *cobra.Command {
	var date string
	var keywords string
	var asJSON bool
	var save bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one crawl over all enabled sources and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" && !collector.ValidDate(date) {
				return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
			}

			cfg := config.Load()
			catalog, err := config.LoadCatalog(cfg.SourcesFile)
			if err != nil {
				return err
			}
			fetchers := collector.Builtin(cfg.SourceOptions(catalog))

			orch, err := orchestrator.New(cfg.SourceTimeout, cfg.TotalTimeout)
			if err != nil {
				return err
			}
			p := pipeline.New(orch, nil)
			kws := processor.ParseKeywords(keywords)

			var res pipeline.Result
			if save {
				// 与 cmd/api 共用存储，结果作为当前快照
				store, _, err := storage.Open(cfg.StoreBackend, cfg.PostgresDSN, cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer store.Close()
				s, err := scheduler.New(cfg.CronSpec, p, fetchers, store, nil)
				if err != nil {
					return err
				}
				if res, err = s.Crawl(cmd.Context(), date, kws); err != nil {
					return err
				}
			} else {
				res = p.Run(cmd.Context(), date, kws, fetchers)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			writeText(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default: no date filter)")
	cmd.Flags().StringVar(&keywords, "keywords", "", "comma separated keywords")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print result as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "store the result as the current snapshot")
	cmd.SetContext(context.Background())
	return cmd
}

type output struct {
	Items         []collector.Item `json:"items"`
	FailedSources []string         `json:"failed_sources"`
	TotalSources  int              `json:"total_sources"`
}

func writeJSON(w io.Writer, res pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(output{
		Items:         res.Items,
		FailedSources: res.FailedSources,
		TotalSources:  res.TotalSources,
	})
}

func writeText(w io.Writer, res pipeline.Result) {
	for _, it := range res.Items {
		fmt.Fprintf(w, "%s  [%s] %s\n", it.PublishedAt, it.Source, it.Title)
		if it.URL != "" {
			fmt.Fprintf(w, "    %s\n", it.URL)
		}
	}
	fmt.Fprintf(w, "\n%d items, %d/%d sources failed %v\n",
		len(res.Items), len(res.FailedSources), res.TotalSources, res.FailedSources)
	if res.AllFailed() {
		log.Printf("warn: all sources failed")
	}
}

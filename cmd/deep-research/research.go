// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/claude"
	"github.com/pdiddy/deep-research/internal/exa"
	"github.com/pdiddy/deep-research/internal/firecrawl"
	"github.com/pdiddy/deep-research/internal/research"
	"github.com/pdiddy/deep-research/internal/store"
	"github.com/pdiddy/deep-research/pkg/types"
)

const maxIterationsLimit = 15

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Run an iterative research session",
	Long: `Research runs the full loop for a query: the model plans a search, Exa
returns ranked sources, Firecrawl fetches full article text, and after the
iteration budget is spent (or the model decides it has enough) the model
synthesizes a literature review.

The completed session is archived locally and the report printed to stdout
or written with --output. A session can also be described in a YAML brief
and run with --brief. Interrupting with Ctrl-C stops before the next
iteration begins.`,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	briefPath, _ := cmd.Flags().GetString("brief")

	var brief *research.Brief
	query := strings.TrimSpace(strings.Join(args, " "))
	if briefPath != "" {
		b, err := research.ReadBrief(briefPath)
		if err != nil {
			return err
		}
		brief = b
		if query == "" {
			query = b.Query
		}
	}
	if query == "" {
		return fmt.Errorf("research query required: pass it as an argument or via --brief")
	}

	cfg, err := researchConfig(cmd, brief)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Search.Timeout}

	planner := &claude.Planner{Config: cfg.AI, HTTP: httpClient}
	searcher := &exa.Client{APIKey: cfg.Search.APIKey, Config: cfg.Search, HTTP: httpClient}
	fetcher := &firecrawl.Client{APIKey: cfg.Fetch.APIKey, Config: cfg.Fetch, HTTP: httpClient}

	ctrl := research.New(planner, searcher, fetcher, cfg.Research, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := ctrl.Run(ctx, query)
	if err != nil {
		return err
	}
	session.Model = cfg.AI.Model

	noArchive, _ := cmd.Flags().GetBool("no-archive")
	if !noArchive {
		st, err := store.New(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Save(ctx, session); err != nil {
			return fmt.Errorf("archiving session: %w", err)
		}
		fmt.Fprintf(os.Stderr, "archived session %s\n", session.ID)
	}

	savePath, _ := cmd.Flags().GetString("save-brief")
	if savePath != "" {
		if brief == nil {
			brief = &research.Brief{Query: query}
			brief.Settings = research.BriefSettings{
				Iterations:       cfg.Research.MaxIterations,
				Model:            cfg.AI.Model,
				ResultsPerSearch: cfg.Research.ResultsPerSearch,
				MaxContentChars:  cfg.Fetch.MaxContentChars,
			}
		}
		brief.RecordOutcome(session)
		if err := research.WriteBrief(savePath, brief); err != nil {
			return err
		}
	}

	return writeResearchOutput(cmd, session)
}

func writeResearchOutput(cmd *cobra.Command, session *types.ResearchSession) error {
	outPath, _ := cmd.Flags().GetString("output")
	asJSON, _ := cmd.Flags().GetBool("json")

	if asJSON {
		if outPath != "" {
			return store.ExportJSON(outPath, session)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(session)
	}

	if outPath != "" {
		if err := store.WriteReport(outPath, session); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", outPath)
		return nil
	}

	fmt.Println(session.Report)
	return nil
}

// researchConfig assembles the run configuration. Precedence: flags, then
// the brief's settings, then the config file, then defaults.
func researchConfig(cmd *cobra.Command, brief *research.Brief) (types.Config, error) {
	var cfg types.Config

	iterations := intOpt(cmd, "iterations", "research.max_iterations")
	model := stringOpt(cmd, "model", "ai.model")
	resultsPer := intOpt(cmd, "results-per-search", "research.results_per_search")
	maxContent := intOpt(cmd, "max-content-chars", "fetch.max_content_chars")
	from := stringOpt(cmd, "from", "research.date_from")
	to := stringOpt(cmd, "to", "research.date_to")

	if brief != nil {
		s := brief.Settings
		if !cmd.Flags().Changed("iterations") && s.Iterations > 0 {
			iterations = s.Iterations
		}
		if !cmd.Flags().Changed("model") && s.Model != "" {
			model = s.Model
		}
		if !cmd.Flags().Changed("results-per-search") && s.ResultsPerSearch > 0 {
			resultsPer = s.ResultsPerSearch
		}
		if !cmd.Flags().Changed("max-content-chars") && s.MaxContentChars > 0 {
			maxContent = s.MaxContentChars
		}
		if !cmd.Flags().Changed("from") && s.DateFrom != "" {
			from = s.DateFrom
		}
		if !cmd.Flags().Changed("to") && s.DateTo != "" {
			to = s.DateTo
		}
	}

	if iterations < 0 || iterations > maxIterationsLimit {
		return cfg, fmt.Errorf("iterations must be between 0 and %d, got %d", maxIterationsLimit, iterations)
	}

	dateFrom, dateTo, err := parseDateBounds(from, to)
	if err != nil {
		return cfg, err
	}

	anthropicKey := loadedSecrets.Get("anthropic-api-key")
	if anthropicKey == "" {
		return cfg, fmt.Errorf("anthropic-api-key not configured: add .secrets/anthropic-api-key or set ANTHROPIC_API_KEY")
	}
	exaKey := loadedSecrets.Get("exa-api-key")
	firecrawlKey := loadedSecrets.Get("firecrawl-api-key")
	if iterations > 0 {
		if exaKey == "" {
			return cfg, fmt.Errorf("exa-api-key not configured: add .secrets/exa-api-key or set EXA_API_KEY")
		}
		if firecrawlKey == "" {
			return cfg, fmt.Errorf("firecrawl-api-key not configured: add .secrets/firecrawl-api-key or set FIRECRAWL_API_KEY")
		}
	}

	timeout := time.Duration(intOpt(cmd, "timeout", "http.timeout_seconds")) * time.Second

	cfg.AI = types.AIConfig{
		Model:      model,
		APIKey:     anthropicKey,
		MaxRetries: 3,
	}
	cfg.Search = types.SearchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: timeout},
		APIKey:     exaKey,
	}
	cfg.Fetch = types.FetchConfig{
		HTTPConfig:      types.HTTPConfig{Timeout: timeout},
		APIKey:          firecrawlKey,
		MaxContentChars: maxContent,
	}
	cfg.Research = types.ResearchConfig{
		MaxIterations:    iterations,
		ResultsPerSearch: resultsPer,
		ParallelFetches:  intOpt(cmd, "parallel-fetches", "research.parallel_fetches"),
		DateFrom:         dateFrom,
		DateTo:           dateTo,
	}
	cfg.Store = storeConfig(cmd)

	return cfg, nil
}

func parseDateBounds(from, to string) (time.Time, time.Time, error) {
	var dateFrom, dateTo time.Time
	var err error
	if from != "" {
		dateFrom, err = time.Parse("2006-01-02", from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from date %q: use YYYY-MM-DD", from)
		}
	}
	if to != "" {
		dateTo, err = time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to date %q: use YYYY-MM-DD", to)
		}
	}
	if !dateFrom.IsZero() && !dateTo.IsZero() && dateTo.Before(dateFrom) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to date %s is before --from date %s", to, from)
	}
	return dateFrom, dateTo, nil
}

func storeConfig(cmd *cobra.Command) types.StoreConfig {
	return types.StoreConfig{
		DataDir:    stringOpt(cmd, "data-dir", "store.data_dir"),
		MaxResults: intOpt(cmd, "max-results", "store.max_results"),
	}
}

func init() {
	researchCmd.Flags().Int("iterations", 5, fmt.Sprintf("iteration budget (0-%d)", maxIterationsLimit))
	researchCmd.Flags().String("model", "claude-3-5-sonnet-latest", "Claude model for planning and synthesis")
	researchCmd.Flags().Int("results-per-search", 5, "search results requested per iteration")
	researchCmd.Flags().Int("max-content-chars", 100000, "cap on fetched article text length")
	researchCmd.Flags().Int("parallel-fetches", 3, "concurrent full-text fetches per iteration (1 = sequential)")
	researchCmd.Flags().String("from", "", "earliest publication date (YYYY-MM-DD)")
	researchCmd.Flags().String("to", "", "latest publication date (YYYY-MM-DD)")
	researchCmd.Flags().Int("timeout", 120, "HTTP timeout in seconds")
	researchCmd.Flags().String("brief", "", "run the session described by a YAML brief")
	researchCmd.Flags().String("save-brief", "", "write a YAML brief (with outcome) after the run")
	researchCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	researchCmd.Flags().Bool("json", false, "output the full session as JSON")
	researchCmd.Flags().Bool("no-archive", false, "skip archiving the session")
	researchCmd.Flags().String("data-dir", "data", "base directory for the session archive")
	researchCmd.Flags().Int("max-results", 20, "default result limit for archive queries")

	rootCmd.AddCommand(researchCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse and manage the session archive",
	Long: `Sessions manages the local archive of completed research runs. Use
subcommands to list sessions, show one in detail, export a session or its
report, search archived source text, or delete a session.`,
}

// --- list subcommand ---

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions, most recent first",
	RunE:  runSessionsList,
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	st, err := store.New(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.List(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No archived sessions.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-5s  %-7s  %-16s  %s\n",
		"ID", "Query", "Iters", "Sources", "Stopped", "Started")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))

	for _, s := range summaries {
		query := s.Query
		if len(query) > 40 {
			query = query[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-40s  %-5d  %-7d  %-16s  %s\n",
			s.ID, query, s.Iterations, s.Sources, s.StopReason,
			s.StartedAt.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(os.Stdout, "\n%d session(s)\n", len(summaries))
	return nil
}

// --- show subcommand ---

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session's searches and sources",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	st, err := store.New(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := st.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(session)
	}

	fmt.Printf("Session:    %s\n", session.ID)
	fmt.Printf("Query:      %s\n", session.Query)
	if session.Model != "" {
		fmt.Printf("Model:      %s\n", session.Model)
	}
	fmt.Printf("Iterations: %d of %d (%s)\n", len(session.Iterations), session.MaxIterations, session.StopReason)
	fmt.Printf("Started:    %s\n", session.StartedAt.Format("2006-01-02 15:04:05"))
	if !session.CompletedAt.IsZero() {
		fmt.Printf("Completed:  %s\n", session.CompletedAt.Format("2006-01-02 15:04:05"))
	}

	for _, it := range session.Iterations {
		fmt.Printf("\nIteration %d: %q\n", it.Index, it.SearchQuery)
		for _, src := range it.Sources {
			marker := "+"
			if !src.Fetched() {
				marker = "-"
			}
			title := src.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("  %s %s\n    %s\n", marker, title, src.URL)
			if src.FetchError != "" {
				fmt.Printf("    fetch error: %s\n", src.FetchError)
			}
		}
	}

	if session.Completed() {
		fmt.Printf("\nReport: %d characters (use 'sessions export %s' to write it out)\n",
			len(session.Report), session.ID)
	}
	return nil
}

// --- export subcommand ---

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's report or full record to a file",
	Long: `Export writes a session out of the archive. The default format is the
report as a Markdown document with a methodology appendix; json and yaml
export the complete session record including all source text.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsExport,
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	st, err := store.New(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := st.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	if outPath == "" {
		ext := map[string]string{"report": "md", "json": "json", "yaml": "yaml"}[format]
		if ext == "" {
			return fmt.Errorf("unsupported format %q: use report, json, or yaml", format)
		}
		outPath = fmt.Sprintf("%s.%s", session.ID, ext)
	}

	switch format {
	case "report", "":
		err = store.WriteReport(outPath, session)
	case "json":
		err = store.ExportJSON(outPath, session)
	case "yaml":
		err = store.ExportYAML(outPath, session)
	default:
		return fmt.Errorf("unsupported format %q: use report, json, or yaml", format)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Exported to %s\n", outPath)
	return nil
}

// --- search subcommand ---

var sessionsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over archived source text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSessionsSearch,
}

func runSessionsSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := store.New(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	hits, err := st.SearchSources(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	for i, h := range hits {
		fmt.Printf("%d. %s\n   %s\n   session %s (iteration %d): %s\n",
			i+1, h.Title, h.URL, h.SessionID, h.Iteration, h.Snippet)
	}
	fmt.Printf("\n%d match(es)\n", len(hits))
	return nil
}

// --- delete subcommand ---

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session from the archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	st, err := store.New(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	sessionsCmd.PersistentFlags().String("data-dir", "data", "base directory for the session archive")
	sessionsCmd.PersistentFlags().Int("max-results", 20, "default result limit for archive queries")

	sessionsListCmd.Flags().Bool("json", false, "output as JSON")
	sessionsShowCmd.Flags().Bool("json", false, "output as JSON")
	sessionsExportCmd.Flags().String("format", "report", "export format: report, json, or yaml")
	sessionsExportCmd.Flags().String("output", "", "output path (default: <session-id>.<ext>)")
	sessionsSearchCmd.Flags().Int("limit", 0, "maximum matches (0 = use default)")
	sessionsSearchCmd.Flags().Bool("json", false, "output as JSON")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsCmd.AddCommand(sessionsSearchCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	rootCmd.AddCommand(sessionsCmd)
}

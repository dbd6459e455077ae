package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ondaradio/onda/internal/ai"
	"github.com/ondaradio/onda/internal/apikey"
	"github.com/ondaradio/onda/internal/database"
	"github.com/ondaradio/onda/internal/headlines"
	"github.com/ondaradio/onda/internal/models"
	"github.com/ondaradio/onda/internal/scraper"
	"github.com/ondaradio/onda/internal/transmedia"
	"github.com/ondaradio/onda/internal/vault"
)

const cliArticleContextRunes = 4000

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "onda %s (built %s)\n", version, buildTime)
	},
}

var (
	researchContext string
	researchURL     string
	researchSave    bool
)

var researchCmd = &cobra.Command{
	Use:   "research <title>",
	Short: "Gather evidence on a topic and write a research report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		title := strings.Join(args, " ")
		topicContext := researchContext
		if u := strings.TrimSpace(researchURL); u != "" {
			article, err := a.scraper.Extract(cmd.Context(), u)
			if err != nil {
				slog.Warn("Reference article extraction failed", "url", u, "error", err)
			} else {
				topicContext = scraper.AppendReference(topicContext, article, cliArticleContextRunes)
			}
		}

		report, err := a.ai.Research(cmd.Context(), title, topicContext)
		if err != nil {
			return err
		}
		slog.Info("Report ready", "source", report.Source, "model", report.Model, "evidence", report.EvidenceCount)

		if researchSave && report.Source != ai.SourceError {
			id, err := a.db.CreateInvestigation(models.Investigation{
				Title:           title,
				Report:          report.Text,
				EvidenceCount:   report.EvidenceCount,
				ImageURLs:       report.ImageURLs,
				SourceImageURLs: report.SourceImageURLs,
			})
			if err != nil {
				return fmt.Errorf("archive investigation: %w", err)
			}
			slog.Info("Investigation archived", "id", id)
		}

		fmt.Fprintln(cmd.OutOrStdout(), report.Text)
		return nil
	},
}

var (
	packReportFile    string
	packInvestigation string
	packTitle         string
	packJSON          bool
	packSave          bool
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Turn a research report into a transmedia content pack",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		report, title, investigationID := "", packTitle, ""
		switch {
		case packInvestigation != "":
			inv, err := a.db.GetInvestigation(packInvestigation)
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("investigation %s not found", packInvestigation)
			}
			if err != nil {
				return err
			}
			report, investigationID = inv.Report, inv.ID
			if title == "" {
				title = inv.Title
			}
		case packReportFile != "":
			report, err = readInput(cmd, packReportFile)
			if err != nil {
				return err
			}
		default:
			return errors.New("one of --investigation or --report-file is required")
		}

		pack, err := a.ai.Transmedia(cmd.Context(), report, title)
		if err != nil {
			return err
		}
		slog.Info("Pack ready", "source", pack.Source, "model", pack.Model)

		if packSave || investigationID != "" {
			id, err := a.db.CreatePack(investigationID, strings.TrimSpace(title), pack.Text)
			if err != nil {
				return fmt.Errorf("archive pack: %w", err)
			}
			slog.Info("Pack archived", "id", id)
		}

		if packJSON {
			return writeJSON(cmd.OutOrStdout(), transmedia.Parse(pack.Text, title))
		}
		fmt.Fprintln(cmd.OutOrStdout(), pack.Text)
		return nil
	},
}

var parseTitle string

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Split a content pack into its channels and print them as JSON",
	Long:  "Reads a pack from the given file, or from stdin when the file is omitted or \"-\".",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		content, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), transmedia.Parse(content, parseTitle))
	},
}

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage stored model credentials",
}

var vaultShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List vault slots with masked credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.vault.Entries(cmd.Context())
		if err != nil {
			return err
		}
		printSlots(cmd.OutOrStdout(), entries)
		return nil
	},
}

var vaultSetCmd = &cobra.Command{
	Use:   "set slot=value...",
	Short: "Write vault slots; an empty value clears the slot",
	Example: `  onda vault set key1=AIza...
  onda vault set key2= key3=AIza...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseAssignments(args)
		if err != nil {
			return err
		}

		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.vault.Update(cmd.Context(), values); err != nil {
			return err
		}
		entries, err := a.vault.Entries(cmd.Context())
		if err != nil {
			return err
		}
		printSlots(cmd.OutOrStdout(), entries)
		return nil
	},
}

var vaultDiagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Probe every stored credential against the diagnostic model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		results, err := a.ai.DiagnoseCredentials(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, d := range results {
			fmt.Fprintf(out, "%-8s %-12s %-18s %5dms %s\n", d.Slot, d.Credential, d.Status, d.LatencyMs, d.Detail)
		}
		return nil
	},
}

var (
	headlinesQuery    string
	headlinesCategory string
	headlinesRefresh  bool
	headlinesLimit    int
)

var headlinesCmd = &cobra.Command{
	Use:   "headlines",
	Short: "List stored headlines, search providers live or refresh the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		q := headlines.Query{Text: strings.TrimSpace(headlinesQuery), Category: headlinesCategory}
		out := cmd.OutOrStdout()

		if headlinesRefresh {
			res, err := a.sched.RefreshNow(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "fetched %d, kept %d, dropped %d, inserted %d\n",
				res.Fetched, res.Kept, res.Dropped, res.Inserted)
			return nil
		}

		var list []models.Headline
		if q.Text != "" {
			list, err = a.headlines.Search(cmd.Context(), q)
		} else {
			category := q.Category
			if category == "general" {
				category = ""
			}
			list, err = a.db.ListHeadlines(category, headlinesLimit)
		}
		if err != nil {
			return err
		}
		if len(list) > headlinesLimit {
			list = list[:headlinesLimit]
		}
		for _, h := range list {
			fmt.Fprintf(out, "[%s] %s\n    %s\n", h.Source, h.Title, h.URL)
		}
		return nil
	},
}

var apikeyRegenerate bool

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Print the HTTP API key, creating it on first use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		var key string
		if apikeyRegenerate {
			if key, err = apikey.Generate(); err != nil {
				return err
			}
			if err := a.db.SetSetting(apikey.SettingKey, key); err != nil {
				return err
			}
			slog.Info("API key regenerated")
		} else if key, _, err = apikey.Ensure(a.db, database.ErrNotFound); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchContext, "context", "", "Extra context for the analyst")
	researchCmd.Flags().StringVar(&researchURL, "url", "", "Reference article whose text is added to the context")
	researchCmd.Flags().BoolVar(&researchSave, "save", false, "Archive the report as an investigation")

	packCmd.Flags().StringVar(&packReportFile, "report-file", "", "Read the report from a file (\"-\" for stdin)")
	packCmd.Flags().StringVar(&packInvestigation, "investigation", "", "Use the report of an archived investigation")
	packCmd.Flags().StringVar(&packTitle, "title", "", "Pack title")
	packCmd.Flags().BoolVar(&packJSON, "json", false, "Print the parsed channels as JSON")
	packCmd.Flags().BoolVar(&packSave, "save", false, "Archive a pack built from --report-file")

	parseCmd.Flags().StringVar(&parseTitle, "title", "", "Title used when the pack has no headline")

	vaultCmd.AddCommand(vaultShowCmd, vaultSetCmd, vaultDiagnoseCmd)

	headlinesCmd.Flags().StringVarP(&headlinesQuery, "query", "q", "", "Search providers live for this text")
	headlinesCmd.Flags().StringVar(&headlinesCategory, "category", "", "Filter by category")
	headlinesCmd.Flags().BoolVar(&headlinesRefresh, "refresh", false, "Fetch from every provider and store new headlines")
	headlinesCmd.Flags().IntVarP(&headlinesLimit, "limit", "n", 30, "Maximum headlines to print")

	apikeyCmd.Flags().BoolVar(&apikeyRegenerate, "regenerate", false, "Replace the current key")
}

// parseAssignments reads slot=value pairs. Slot names are checked here so a
// typo fails before anything is written.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		slot, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected slot=value, got %q", arg)
		}
		slot = strings.ToLower(strings.TrimSpace(slot))
		if !slices.Contains(vault.Slots, slot) {
			return nil, fmt.Errorf("%w: %s", vault.ErrUnknownSlot, slot)
		}
		values[slot] = strings.TrimSpace(value)
	}
	return values, nil
}

func printSlots(w io.Writer, entries map[string]string) {
	slots := make([]string, 0, len(entries))
	for slot := range entries {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		masked := entries[slot]
		if masked == "" {
			masked = "(empty)"
		}
		fmt.Fprintf(w, "%s\t%s\n", slot, masked)
	}
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

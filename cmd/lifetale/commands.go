package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/kalambet/lifetale/internal/config"
	"github.com/kalambet/lifetale/internal/deepseek"
	"github.com/kalambet/lifetale/internal/profile"
)

// snapshot mirrors the server's batch response.
type snapshot struct {
	Story struct {
		ID     string `json:"id"`
		Stages []struct {
			Age   int    `json:"age"`
			Title string `json:"title"`
		} `json:"stages"`
		Complete bool `json:"complete"`
	} `json:"story"`
	Progress int  `json:"progress"`
	Done     bool `json:"done"`
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a complete life story",
	Long: `Generate a complete life story, batch by batch.

The profile comes from --profile (a JSON file) or, when omitted, from the
saved default profile.

Examples:
  lifetale generate --profile ./hero.json
  lifetale generate --output story.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profilePath, _ := cmd.Flags().GetString("profile")
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var p profile.Profile
		if profilePath != "" {
			data, err := os.ReadFile(profilePath)
			if err != nil {
				return fmt.Errorf("reading profile file: %w", err)
			}
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("parsing profile file: %w", err)
			}
		} else {
			if err := client.getJSON(ctx, "/profile", &p); err != nil {
				return fmt.Errorf("no --profile given and no default profile saved: %w", err)
			}
		}
		if errs := p.Validate(); len(errs) > 0 {
			for _, e := range errs {
				printError("%v", e)
			}
			return fmt.Errorf("profile is invalid")
		}

		printProgress("Generating story for %s...", p.Name)

		var snap snapshot
		if err := client.postJSON(ctx, "/stories", p, &snap); err != nil {
			return err
		}
		printProgress("progress %d%%, %d stages", snap.Progress, len(snap.Story.Stages))

		id := snap.Story.ID
		for !snap.Done {
			if err := client.postJSON(ctx, "/stories/"+id+"/batches", nil, &snap); err != nil {
				return err
			}
			printProgress("progress %d%%, %d stages", snap.Progress, len(snap.Story.Stages))
		}

		printSuccess("Story %s complete (%d stages)", id, len(snap.Story.Stages))

		if output != "" {
			return exportToFile(cmd, client, id, "markdown", output)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("profile", "", "path to a profile JSON file")
	generateCmd.Flags().String("output", "", "write the finished story as Markdown to this file")
}

// --- story ---

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Inspect and manage stored stories",
}

var storyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var stories []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Stages    int    `json:"stages"`
			Complete  bool   `json:"complete"`
			UpdatedAt string `json:"updated_at"`
		}
		if err := client.getJSON(cmd.Context(), fmt.Sprintf("/stories?limit=%d", limit), &stories); err != nil {
			return err
		}

		if len(stories) == 0 {
			fmt.Println("No stories found.")
			return nil
		}

		for _, s := range stories {
			state := "in progress"
			if s.Complete {
				state = "complete"
			}
			fmt.Printf("%s  %-20s  %2d stages  %-11s  %s\n",
				tint(ansiCyan, s.ID[:8]),
				s.Name,
				s.Stages,
				state,
				s.UpdatedAt,
			)
		}
		return nil
	},
}

var storyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a story as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJSON(cmd, "/stories/"+args[0])
	},
}

var storyReportCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Check a story for missing ages, gaps, and thin stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var report struct {
			Valid       bool     `json:"valid"`
			MissingAges []int    `json:"missing_ages"`
			Issues      []string `json:"issues"`
		}
		if err := client.getJSON(cmd.Context(), "/stories/"+args[0]+"/report", &report); err != nil {
			return err
		}

		if report.Valid {
			printSuccess("Story is complete and well-formed")
			return nil
		}
		if len(report.MissingAges) > 0 {
			printWarning("Missing ages: %v", report.MissingAges)
		}
		for _, issue := range report.Issues {
			printWarning("%s", issue)
		}
		return nil
	},
}

var storyStatsCmd = &cobra.Command{
	Use:   "stats <id>",
	Short: "Show summary statistics for a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJSON(cmd, "/stories/"+args[0]+"/stats")
	},
}

var storyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a story as Markdown or HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return exportToFile(cmd, client, args[0], format, output)
	},
}

var storyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var result map[string]string
		if err := client.deleteJSON(cmd.Context(), "/stories/"+args[0], &result); err != nil {
			return err
		}

		printSuccess("Deleted story %s", result["deleted"])
		return nil
	},
}

func init() {
	storyListCmd.Flags().Int("limit", 20, "maximum number of stories to list")
	storyExportCmd.Flags().String("format", "markdown", "export format: markdown or html")
	storyExportCmd.Flags().String("output", "", "output file path (default: stdout)")

	storyCmd.AddCommand(storyListCmd)
	storyCmd.AddCommand(storyShowCmd)
	storyCmd.AddCommand(storyReportCmd)
	storyCmd.AddCommand(storyStatsCmd)
	storyCmd.AddCommand(storyExportCmd)
	storyCmd.AddCommand(storyDeleteCmd)
}

func exportToFile(cmd *cobra.Command, client *apiClient, id, format, output string) error {
	body, err := client.getRaw(cmd.Context(), fmt.Sprintf("/stories/%s/export?format=%s", id, format))
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Print(body)
		return nil
	}
	if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	printSuccess("Story exported to %s", output)
	return nil
}

// --- stage ---

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Fill in or rewrite individual story stages",
}

var stageFillCmd = &cobra.Command{
	Use:   "fill <story-id> <age>",
	Short: "Generate the stage at the given age",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return stageOp(cmd, args, "")
	},
}

var stageRegenCmd = &cobra.Command{
	Use:   "regen <story-id> <age>",
	Short: "Rewrite the stage at the given age",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return stageOp(cmd, args, "/regenerate")
	},
}

func stageOp(cmd *cobra.Command, args []string, suffix string) error {
	age, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid age %q", args[1])
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var result struct {
		Stage struct {
			Age     int    `json:"age"`
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"stage"`
	}
	if err := client.postJSON(cmd.Context(), fmt.Sprintf("/stories/%s/stages/%d%s", args[0], age, suffix), nil, &result); err != nil {
		return err
	}

	fmt.Printf("%s\n%s\n", tint(ansiBold, fmt.Sprintf("Age %d: %s", result.Stage.Age, result.Stage.Title)), result.Stage.Content)
	return nil
}

func init() {
	stageCmd.AddCommand(stageFillCmd)
	stageCmd.AddCommand(stageRegenCmd)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the default character profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the default profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showJSON(cmd, "/profile")
	},
}

// attributeKeys are settable as bare keys: lifetale profile set wealth 7.
var attributeKeys = map[string]bool{
	"intelligence": true,
	"appearance":   true,
	"wealth":       true,
	"health":       true,
}

var profileSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a profile field (name, gender, description, or an attribute)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		var body map[string]any
		if attributeKeys[key] {
			score, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("attribute %s needs an integer value: %w", key, err)
			}
			body = map[string]any{key: score}
		} else {
			body = map[string]any{key: value}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var updated profile.Profile
		if err := client.patchJSON(cmd.Context(), "/profile", body, &updated); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file.pdf>",
	Short: "Import the profile description from a PDF document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, err := profile.DescriptionFromPDF(args[0])
		if err != nil {
			return fmt.Errorf("extracting description: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var updated profile.Profile
		if err := client.patchJSON(cmd.Context(), "/profile", map[string]string{"description": description}, &updated); err != nil {
			return err
		}

		printSuccess("Imported description (%d characters)", utf8.RuneCountInString(description))
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileImportCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", tint(ansiBold, k.Key), k.Value)
		}
		return nil
	},
}

var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the DeepSeek credential with a minimal completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client := deepseek.NewClientWithBaseURL(cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL)
		printProgress("Checking DeepSeek connectivity at %s...", cfg.DeepSeek.BaseURL)
		if err := client.TestConnection(cmd.Context()); err != nil {
			printError("DeepSeek check failed: %v", err)
			return err
		}
		printSuccess("DeepSeek API reachable and credential accepted")
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configTestCmd)
}

func showJSON(cmd *cobra.Command, path string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var v any
	if err := client.getJSON(cmd.Context(), path, &v); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

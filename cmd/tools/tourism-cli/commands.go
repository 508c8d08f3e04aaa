package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tourism-workers/internal/bootstrap"
	"tourism-workers/internal/canonical"
	"tourism-workers/internal/catalog"
	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/database"
	"tourism-workers/internal/common/logger"
	"tourism-workers/internal/pipeline"
	"tourism-workers/pkg/registry"
)

const defaultRegistryPath = "configs/profiles.json"

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tourism-cli",
		Short: "Operator tooling for the accessible tourism workers",
		Long: `tourism-cli runs the tourism pipeline locally and maintains the data
files the workers load at startup (profile registry, venue catalog).`,
		SilenceUsage: true,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (defaults to configs/config.yaml)")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level for pipeline components")

	rootCmd.AddCommand(
		analyzeCmd(),
		canonicalizeCmd(),
		profilesCmd(),
		catalogCmd(),
		versionCmd(),
	)
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func cmdLogger(cmd *cobra.Command) logger.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.NewStructured(level, "console")
}

func jsonOutput(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("format")
	return format == "json"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readInput returns the positional arguments joined, or stdin when none are given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Run a query through the full pipeline and print the answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := cmdLogger(cmd)

			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conns, err := database.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer conns.Close()

			components, err := bootstrap.Build(ctx, cfg, conns, nil, log)
			if err != nil {
				return err
			}

			language, _ := cmd.Flags().GetString("language")
			profile, _ := cmd.Flags().GetString("profile")
			resp, err := components.Agent.Process(ctx, pipeline.Request{
				Text:      text,
				Language:  language,
				ProfileID: profile,
			})
			if err != nil {
				return err
			}
			return printResponse(cmd, resp)
		},
	}
	cmd.Flags().StringP("language", "l", "", "query language (defaults to nlu.default_language)")
	cmd.Flags().StringP("profile", "p", "", "profile id from the registry")
	cmd.Flags().Duration("timeout", 2*time.Minute, "overall timeout")
	return cmd
}

func printResponse(cmd *cobra.Command, resp *pipeline.Response) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return writeJSON(out, resp)
	}

	fmt.Fprintf(out, "run %s  intent=%s  degraded=%t\n\n", resp.RunID, resp.Intent, resp.Degraded)
	for _, step := range resp.PipelineSteps {
		dur := "-"
		if step.DurationMs != nil {
			dur = strconv.FormatInt(*step.DurationMs, 10) + "ms"
		}
		fmt.Fprintf(out, "  %-16s %-10s %8s  %s\n", step.Name, step.Status, dur, step.Summary)
	}
	fmt.Fprintf(out, "\n%s\n", resp.ResponseText)
	return nil
}

func canonicalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canonicalize [file]",
		Short: "Canonicalize a tourism record, or extract the json block from generated text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if fromText, _ := cmd.Flags().GetBool("text"); fromText {
				ex := pipeline.NewExtractor(canonical.NewCanonicalizer(cmdLogger(cmd)), cmdLogger(cmd))
				clean, tourismData := ex.Extract(string(data), nil)
				return writeJSON(out, map[string]interface{}{
					"cleanText":   clean,
					"tourismData": tourismData,
					"valid":       tourismData != nil,
				})
			}

			var raw interface{}
			if err := json.Unmarshal(data, &raw); err != nil {
				return fmt.Errorf("input is not JSON: %w", err)
			}
			tourismData, err := canonical.CanonicalizeTourismData(raw)
			if err != nil {
				return err
			}
			return writeJSON(out, tourismData)
		},
	}
	cmd.Flags().Bool("text", false, "treat input as generated text carrying a fenced json block")
	return cmd
}

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect and edit the profile registry",
	}
	cmd.PersistentFlags().String("registry", defaultRegistryPath, "path to the profile registry")

	cmd.AddCommand(profilesListCmd(), profilesValidateCmd(), profilesAddCmd(), profilesRemoveCmd())
	return cmd
}

func loadRegistry(cmd *cobra.Command) (*registry.ProfileRegistry, string, error) {
	path, _ := cmd.Flags().GetString("registry")
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, path, nil
}

func profilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := loadRegistry(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return writeJSON(out, reg)
			}
			fmt.Fprintf(out, "registry version %s (updated %s)\n", reg.Version, reg.LastUpdated)
			for _, p := range reg.Profiles {
				fmt.Fprintf(out, "  %-20s %s\n", p.ID, p.Label)
			}
			return nil
		},
	}
}

func profilesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the profile registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := loadRegistry(cmd)
			if err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed (%d profiles).\n", len(reg.Profiles))
			return nil
		},
	}
}

func profilesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a profile to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("registry")
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				if !os.IsNotExist(err) {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				reg = &registry.ProfileRegistry{Version: "1.0.0", Profiles: []registry.Profile{}}
			}

			id, _ := cmd.Flags().GetString("id")
			label, _ := cmd.Flags().GetString("label")
			description, _ := cmd.Flags().GetString("description")
			directives, _ := cmd.Flags().GetStringArray("directive")
			biasFlags, _ := cmd.Flags().GetStringArray("bias")

			bias, err := parseBias(biasFlags)
			if err != nil {
				return err
			}

			if err := reg.Add(registry.Profile{
				ID:               id,
				Label:            label,
				Description:      description,
				PromptDirectives: directives,
				RankingBias:      bias,
			}, time.Now().UTC()); err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			if err := registry.SaveRegistry(reg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added profile: %s\n", id)
			return nil
		},
	}
	cmd.Flags().String("id", "", "profile id (e.g. night_leisure)")
	cmd.Flags().String("label", "", "display label")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().StringArray("directive", nil, "prompt directive (repeatable)")
	cmd.Flags().StringArray("bias", nil, "ranking bias as key=weight (repeatable)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func profilesRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a profile from the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, path, err := loadRegistry(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString("id")
			if err := reg.Remove(id, time.Now().UTC()); err != nil {
				return err
			}
			if err := registry.SaveRegistry(reg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed profile: %s\n", id)
			return nil
		},
	}
	cmd.Flags().String("id", "", "profile id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func parseBias(pairs []string) (map[string]float64, error) {
	bias := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid bias %q, expected key=weight", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bias weight %q: %w", pair, err)
		}
		bias[key] = w
	}
	return bias, nil
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the venue catalog",
	}
	cmd.AddCommand(catalogShowCmd())
	return cmd
}

func catalogShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the catalog tables (embedded unless --file is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.CatalogConfig{Source: "embedded"}
			if path, _ := cmd.Flags().GetString("file"); path != "" {
				cfg = config.CatalogConfig{Source: "file", Path: path}
			}
			cat, err := catalog.Load(cmd.Context(), cfg, nil, cmdLogger(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return writeJSON(out, cat)
			}
			if full, _ := cmd.Flags().GetBool("full"); full {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(cat)
			}

			fmt.Fprintf(out, "catalog version %s\n", cat.Version)
			printKeys(out, "accessibility", keysOf(cat.Accessibility))
			printKeys(out, "routes", keysOf(cat.Routes))
			printKeys(out, "venues", keysOf(cat.Venues))
			fmt.Fprintf(out, "default venue: %s\n", cat.DefaultVenueName())
			return nil
		},
	}
	cmd.Flags().String("file", "", "catalog YAML file to load instead of the embedded one")
	cmd.Flags().Bool("full", false, "dump every table as YAML")
	return cmd
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printKeys(out io.Writer, title string, keys []string) {
	fmt.Fprintf(out, "%s (%d):\n", title, len(keys))
	for _, k := range keys {
		fmt.Fprintf(out, "  - %s\n", k)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tourism-cli %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		},
	}
}

package main

import (
	"fmt"
	"strings"

	"archscan/internal/scanner"
	"archscan/internal/scanners"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the installed scanners in execution order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := scanners.Discover()
		if err != nil {
			return err
		}
		all, err := registry.DiscoverAll()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-26s %-8s %-22s %s\n", "ID", "PRIORITY", "LANGUAGES", "GROUPS")
		for _, s := range scanner.SortByPriority(all) {
			fmt.Fprintf(w, "%-26s %-8d %-22s %s\n",
				s.ID(), s.Priority(), strings.Join(s.Languages(), ","), strings.Join(scanners.GroupsOf(s.ID()), ","))
		}
		fmt.Fprintf(w, "\n%d scanners; groups: %s\n", len(all), strings.Join(scanners.GroupNames(), ", "))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}

		ids, _ := cfg.Selection()
		selection := "all scanners"
		if len(ids) > 0 {
			selection = strings.Join(ids, ", ")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid (project %q, scanners: %s)\n",
			configPath, projectName(cfg), selection)
		return nil
	},
}

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cadence-hq/cadence/internal/registry"
)

var registryToolsProfile string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the tool and profile registry",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the registry document",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(cfg.Core.RegistryPath)
		if err != nil {
			return err
		}

		cmd.Printf("registry %s is valid: %d tools, %d profiles\n",
			cfg.Core.RegistryPath, len(reg.Tools), len(reg.Profiles))

		profiles := make([]string, 0, len(reg.Profiles))
		for name := range reg.Profiles {
			profiles = append(profiles, name)
		}
		sort.Strings(profiles)
		for _, name := range profiles {
			cmd.Printf("  profile %-16s ceiling %.1f\n", name, reg.BudgetCeiling(name))
		}
		return nil
	},
}

var registryToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools a profile may plan with",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(cfg.Core.RegistryPath)
		if err != nil {
			return err
		}

		profile := registryToolsProfile
		if profile == "" {
			profile = cfg.Core.Profile
		}

		tools, err := reg.AvailableTools(profile)
		if err != nil {
			return err
		}

		cmd.Printf("profile %s: %d tools\n", profile, len(tools))
		for _, t := range tools {
			gate := ""
			if t.SideEffects.RequiresApproval() {
				gate = " (approval required)"
			}
			cmd.Printf("  %-28s %-14s %s%s\n", t.Name, t.Domain, t.SideEffects, gate)
			if t.Description != "" {
				cmd.Printf("      %s\n", t.Description)
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cadence version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cadence %s\n", version)
	},
}

// version is set at build time via -ldflags.
var version = "dev"

func init() {
	registryToolsCmd.Flags().StringVar(&registryToolsProfile, "profile", "", "Profile to list tools for (defaults to core.profile)")
	registryCmd.AddCommand(registryValidateCmd)
	registryCmd.AddCommand(registryToolsCmd)
}

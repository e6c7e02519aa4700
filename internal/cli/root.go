/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli is the multicanvas command line. Every command loads a
// workspace into a registry backed by the document host, runs one operation
// and saves the workspace back.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"multicanvas/internal/config"
	"multicanvas/internal/locale"
	applog "multicanvas/internal/log"
	"multicanvas/internal/telemetry"
)

var (
	// Global flags
	jsonOutput    bool
	workspaceFlag string
	langFlag      string

	// Effective settings, filled by setup before any command runs.
	appCfg = config.Defaults()
	loc    = locale.New("en")

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for multicanvas.
var rootCmd = &cobra.Command{
	Use:     "multicanvas",
	Version: "dev",
	Short:   "Keep several map projects open in one workspace",
	Long: `multicanvas keeps several map projects open side by side in one workspace.

Each project remembers its own view, bookmarks and navigation history while
another one is active, and the whole set is saved to a single manifest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// setup loads the configuration and initializes logging, locale and
// telemetry from it. A broken config file only produces a warning.
func setup(cmd *cobra.Command, args []string) error {
	stdout, stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
	cfg, err := config.Load()
	appCfg = cfg
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	if err != nil {
		applog.WithComponent("cli").Warn("config not loaded, using defaults", "err", err)
	}

	lang := langFlag
	if lang == "" {
		lang = cfg.General.Locale
	}
	loc = locale.New(locale.Detect(lang))

	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.SetDefault(telemetry.New(tc))
	telemetry.Default().Event(telemetry.EventCommand, map[string]any{"name": cmd.Name()})
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	telemetry.Default().Flush(ctx)
}

// customHelpFunc returns a custom help function that colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")
		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-13s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	hasUngrouped := false
	for _, c := range cmd.Commands() {
		if c.GroupID == "" && !c.Hidden {
			if !hasUngrouped {
				help.WriteString(sectionTitleColor.Sprint("Available Commands:"))
				help.WriteString("\n")
				hasUngrouped = true
			}
			fmt.Fprintf(&help, "  %-13s %s\n", c.Name(), c.Short)
		}
	}
	if hasUngrouped {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace manifest (defaults to the most recent one)")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "Message language (en, it)")

	rootCmd.AddGroup(&cobra.Group{ID: "workspace", Title: "Workspace:"})
	rootCmd.AddGroup(&cobra.Group{ID: "projects", Title: "Projects:"})
	rootCmd.AddGroup(&cobra.Group{ID: "view", Title: "View & Navigation:"})
	rootCmd.AddGroup(&cobra.Group{ID: "cli-tooling", Title: "CLI & Tooling:"})

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the multicanvas version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Root().Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	// Workspace
	for _, c := range []*cobra.Command{initCmd, infoCmd, saveCmd, packCmd, unpackCmd, recentCmd} {
		c.GroupID = "workspace"
		rootCmd.AddCommand(c)
	}

	// Projects
	for _, c := range []*cobra.Command{newCmd, openCmd, switchCmd, closeCmd, closeOthersCmd, duplicateCmd, renameCmd, moveCmd, saveAsCmd, layerCmd} {
		c.GroupID = "projects"
		rootCmd.AddCommand(c)
	}

	// View & Navigation
	for _, c := range []*cobra.Command{viewCmd, syncCmd, backCmd, forwardCmd, bookmarkCmd, searchCmd} {
		c.GroupID = "view"
		rootCmd.AddCommand(c)
	}

	configCmd.GroupID = "cli-tooling"
	rootCmd.AddCommand(configCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}


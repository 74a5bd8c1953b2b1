package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage posagg configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  posagg config init -o posagg.yaml
  posagg config validate -f posagg.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with the built-in micro futures
symbols, no journal and the default fee schedule.

Example:
  posagg config init -o posagg.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check that a configuration file loads and every symbol has a usable
tick size.

Example:
  posagg config validate -f posagg.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "posagg.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(w, "\nEdit the file and run with:")
	fmt.Fprintf(w, "  posagg --config %s load-csv fills.csv\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Configuration valid: %s\n", configValidatePath)
	for _, s := range c.Symbols {
		fmt.Fprintf(w, "  Symbol: %-6s tick %g  $%g/tick  $%g/pt\n", s.Root, s.TickSize, s.DollarsPerTick, s.PointValue())
	}
	fmt.Fprintf(w, "  Marks: %d\n", len(c.Marks))
	fmt.Fprintf(w, "  Journal: %s\n", c.Journal.Type)
	if c.Redis.Addr != "" {
		fmt.Fprintf(w, "  Redis: %s (prefix %q)\n", c.Redis.Addr, c.Redis.Prefix)
	}
	return nil
}

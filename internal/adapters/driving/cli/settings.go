package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/services"
)

var settingsReveal bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure embedding, LLM, vector index and pipeline settings.

Values resolve from defaults, then the config file, then the environment.
Secrets are masked unless --reveal is given.`,
	Args: cobra.NoArgs,
	RunE: runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Persist a setting to the config file",
	Long: `Validate and persist one setting.

When the value is omitted for a secret (API keys, the bearer token) it is
read from the terminal without echo.`,
	Example: `  docqa settings set pipeline.top_k 8
  docqa settings set llm.provider anthropic
  docqa settings set llm.api_key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the configured services",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.PersistentFlags().BoolVar(&settingsReveal, "reveal", false, "print secrets unmasked")
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := requireSettings()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	section := ""
	for _, key := range services.SettingKeys() {
		value, err := settings.GetValue(key)
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", key, err)
		}

		prefix, name, _ := strings.Cut(key, ".")
		if prefix != section {
			section = prefix
			cmd.Printf("\n[%s]\n", section)
		}
		cmd.Printf("  %s = %s\n", name, displayValue(key, value))
	}
	cmd.Println()

	resolved, err := settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := settings.Validate(resolved); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docqa settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	settings, err := requireSettings()
	if err != nil {
		return err
	}

	value, err := settings.GetValue(args[0])
	if err != nil {
		return err
	}
	cmd.Println(displayValue(args[0], value))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	settings, err := requireSettings()
	if err != nil {
		return err
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case services.IsSecretKey(key):
		cmd.Printf("Enter value for %s: ", key)
		value = readSecret(cmd)
		cmd.Println()
	default:
		return fmt.Errorf("missing value for %s", key)
	}

	if err := settings.Set(key, value); err != nil {
		return err
	}
	cmd.Printf("Set %s = %s\n", key, displayValue(key, value))
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	settings, err := requireSettings()
	if err != nil {
		return err
	}

	if err := settings.Check(cmd.Context()); err != nil {
		return fmt.Errorf("check failed:\n%w", err)
	}
	cmd.Println("All services reachable.")
	return nil
}

func displayValue(key, value string) string {
	if value == "" {
		return "(not set)"
	}
	if services.IsSecretKey(key) && !settingsReveal {
		return maskAPIKey(value)
	}
	return value
}

// readSecret reads one line without echo when stdin is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(cmd *cobra.Command) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

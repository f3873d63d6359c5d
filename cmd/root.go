// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docdriver/internal/config"
	"github.com/xkilldash9x/docdriver/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// rootOptions holds the persistent flags.
type rootOptions struct {
	cfgFile  string
	backend  string
	headless bool
}

// configSearchPath is tried in order when --config is not given.
var configSearchPath = []string{"config.yaml", "~/.docdriver.yaml"}

// newRootCmd builds the command tree. Every invocation gets a fresh tree so
// tests do not share flag state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "docdriver",
		Short:         "docdriver drives a live browser document through its scripting host.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, opts.cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "docdriver"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			// Flags win over the file and the environment.
			if cmd.Flags().Changed("backend") {
				cfg.SetHostBackend(opts.backend)
			}
			if cmd.Flags().Changed("headless") {
				cfg.SetHostHeadless(opts.headless)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting docdriver", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.docdriver.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", config.BackendSafari, "scripting host backend: safari, cdp or offline")
	rootCmd.PersistentFlags().BoolVar(&opts.headless, "headless", true, "run a launched Chromium without a window (cdp backend)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newGotoCmd(),
		newReloadCmd(),
		newTextCmd(),
		newTitleCmd(),
		newURLCmd(),
		newLinksCmd(),
		newEvalCmd(),
		newExistsCmd(),
		newClickCmd(),
		newValueCmd(),
		newCompileCmd(),
		newAlertCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command with a signal-aware context.
func Execute(ctx context.Context) error {
	defer observability.Sync()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}
	return nil
}

// initializeConfig reads the config file, if any, and wires DOCDRIVER_*
// environment variables into v.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	path, err := findConfigFile(cfgFile)
	if err != nil {
		return err
	}

	v.SetEnvPrefix("DOCDRIVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// findConfigFile resolves an explicit path or walks configSearchPath. An
// explicit path must exist; a missing default is not an error.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		path, err := homedir.Expand(explicit)
		if err != nil {
			return "", fmt.Errorf("cannot expand config path %q: %w", explicit, err)
		}
		return path, nil
	}
	for _, candidate := range configSearchPath {
		path, err := homedir.Expand(candidate)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// configFrom returns the configuration PersistentPreRunE stored on the context.
func configFrom(cmd *cobra.Command) (config.Interface, error) {
	cfg, ok := cmd.Context().Value(configKey).(config.Interface)
	if !ok {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}

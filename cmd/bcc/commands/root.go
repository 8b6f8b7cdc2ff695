package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"baikalctl/cmd/bcc/globals"
	"baikalctl/internal/client"
	"baikalctl/internal/components/telemetry"
	"baikalctl/internal/config"
	"baikalctl/internal/version"
	libtelemetry "baikalctl/lib/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// errReported is returned once a failure has been written to stdout, it only
// sets the exit code.
var errReported = errors.New("reported")

// errShowConfig stops the command after --show-config printed the config.
var errShowConfig = errors.New("show config")

var (
	configFile string
	dotEnvFile string
	showConfig bool
	useTable   bool
	flagValues config.ClientConfig
)

var rootCmd = &cobra.Command{
	Use:           "bcc",
	Short:         "bcc is the command line client of the baikalctl service.",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if showConfig {
			dump, err := cfg.Dump(false)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dump)
			return errShowConfig
		}

		cfg, err = cfg.Resolve()
		if err != nil {
			return err
		}
		level, _ := libtelemetry.ParseLevel(cfg.LogLevel)
		if cfg.Debug {
			level = slog.LevelDebug
		}
		libtelemetry.InitSlog(level, false)

		c, err := client.NewClient(client.Options{
			URL:        cfg.URL,
			Account:    cfg.Account(),
			APIKey:     cfg.APIKey,
			ClientCert: cfg.ClientCert,
			ClientKey:  cfg.ClientKey,
			CACert:     cfg.CACert,
			Timeout:    time.Duration(cfg.Timeout) * time.Second,
		}, telemetry.SlogAPI{})
		if err != nil {
			return err
		}

		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
			Config: cfg,
			Client: c,
			Table:  useTable,
		}))
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate(version.Header("bcc") + "\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", config.DefaultClientFile, "Config file, searched for from the working directory upwards.")
	flags.StringVar(&dotEnvFile, "env-file", config.DefaultDotEnv, "Dotenv file backing the environment.")
	flags.BoolVar(&showConfig, "show-config", false, "Print the configuration and exit.")
	flags.BoolVar(&useTable, "table", false, "Render listings as tables.")

	flags.StringVarP(&flagValues.URL, "url", "u", "", "baikalctl server url.")
	flags.StringVarP(&flagValues.Username, "username", "U", "", "Admin username.")
	flags.StringVarP(&flagValues.Password, "password", "P", "", "Admin password, @file reads it from a file.")
	flags.StringVar(&flagValues.APIKey, "api-key", "", "baikalctl API key, @file reads it from a file.")
	flags.StringVar(&flagValues.ClientCert, "cert", "", "Client certificate file.")
	flags.StringVar(&flagValues.ClientKey, "key", "", "Client certificate key file.")
	flags.StringVar(&flagValues.CACert, "ca-cert", "", "CA certificate verifying the server.")
	flags.IntVar(&flagValues.Timeout, "timeout", 0, "Request timeout in seconds.")
	flags.BoolVarP(&flagValues.Debug, "debug", "d", false, "Debug logging.")
	flags.StringVarP(&flagValues.LogLevel, "log-level", "l", "", "Log level.")
}

// flagOverrides copies the value of every flag given on the command line.
var flagOverrides = map[string]func(dst *config.ClientConfig){
	"url":       func(dst *config.ClientConfig) { dst.URL = flagValues.URL },
	"username":  func(dst *config.ClientConfig) { dst.Username = flagValues.Username },
	"password":  func(dst *config.ClientConfig) { dst.Password = flagValues.Password },
	"api-key":   func(dst *config.ClientConfig) { dst.APIKey = flagValues.APIKey },
	"cert":      func(dst *config.ClientConfig) { dst.ClientCert = flagValues.ClientCert },
	"key":       func(dst *config.ClientConfig) { dst.ClientKey = flagValues.ClientKey },
	"ca-cert":   func(dst *config.ClientConfig) { dst.CACert = flagValues.CACert },
	"timeout":   func(dst *config.ClientConfig) { dst.Timeout = flagValues.Timeout },
	"debug":     func(dst *config.ClientConfig) { dst.Debug = flagValues.Debug },
	"log-level": func(dst *config.ClientConfig) { dst.LogLevel = flagValues.LogLevel },
}

func loadConfig(flags *pflag.FlagSet) (config.ClientConfig, error) {
	env, err := config.ReadEnvironment(dotEnvFile)
	if err != nil {
		return config.ClientConfig{}, err
	}
	cfg, err := config.LoadClient(configFile, !flags.Changed("config"), env)
	if err != nil {
		return config.ClientConfig{}, err
	}
	for name, apply := range flagOverrides {
		if flags.Changed(name) {
			apply(&cfg)
		}
	}
	return cfg, nil
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil, errors.Is(err, errShowConfig):
	case errors.Is(err, errReported):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

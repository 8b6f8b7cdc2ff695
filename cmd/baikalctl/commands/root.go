package commands

import (
	"context"
	"errors"
	"fmt"

	"baikalctl/internal/config"
	"baikalctl/internal/version"
	"baikalctl/lib/util/serviceutil"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errShowConfig = errors.New("show config")

var (
	configFile string
	dotEnvFile string
	showConfig bool
	flagValues config.Config
)

var rootCmd = &cobra.Command{
	Use:           "baikalctl",
	Short:         "baikalctl serves a REST API driving the Baïkal admin console.",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runServe,
}

func init() {
	rootCmd.SetVersionTemplate(version.Header("baikalctl") + "\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", config.DefaultFile, "Config file, a sibling with .local before the extension overrides it.")
	flags.StringVar(&dotEnvFile, "env-file", config.DefaultDotEnv, "Dotenv file backing the environment.")
	flags.BoolVar(&showConfig, "show-config", false, "Print the configuration and exit.")

	flags.StringVarP(&flagValues.Address, "address", "A", "", "Listen address.")
	flags.IntVarP(&flagValues.Port, "port", "P", 0, "Listen port.")
	flags.StringVar(&flagValues.APIKey, "api-key", "", "API key clients must send, @file reads it from a file.")
	flags.StringVarP(&flagValues.CaldavURL, "url", "U", "", "Baïkal server url.")
	flags.StringVar(&flagValues.ClientCert, "cert", "", "Client certificate presented to the Baïkal server.")
	flags.StringVar(&flagValues.ClientKey, "key", "", "Client certificate key file.")
	flags.StringVar(&flagValues.ProfileName, "profile-name", "", "Browser profile name.")
	flags.StringVar(&flagValues.ProfileDir, "profile-dir", "", "Persistent browser profile directory.")
	flags.BoolVar(&flagValues.Headless, "headless", false, "Run the browser headless.")
	flags.StringVar(&flagValues.Display, "display", "", "X display of a headed browser.")
	flags.StringVar(&flagValues.XvfbBin, "xvfb", "", "Xvfb binary started for a headed browser.")
	flags.BoolVar(&flagValues.InstallBrowser, "install-browser", false, "Download the browser before the first launch.")
	flags.BoolVar(&flagValues.IgnoreHTTPSErrors, "ignore-https-errors", false, "Accept invalid server certificates.")
	flags.IntVar(&flagValues.BrowserTimeout, "browser-timeout", 0, "Browser action timeout in seconds.")
	flags.Float64Var(&flagValues.NavigationRate, "navigation-rate", 0, "Page loads per second, 0 is unlimited.")
	flags.IntVar(&flagValues.WizardMaxSteps, "wizard-max-steps", 0, "Panels the setup wizard may show.")
	flags.IntVar(&flagValues.WizardTimeout, "wizard-timeout", 0, "Setup wizard timeout in seconds.")
	flags.StringVar(&flagValues.ResetSchedule, "reset-schedule", "", "Cron schedule restarting the browser session.")
	flags.StringVar(&flagValues.Timezone, "timezone", "", "IANA timezone of the reset schedule.")
	flags.BoolVarP(&flagValues.Debug, "debug", "d", false, "Debug logging.")
	flags.StringVarP(&flagValues.LogLevel, "log-level", "l", "", "Log level.")
	flags.BoolVar(&flagValues.LogJSON, "log-json", false, "Log JSON lines.")
}

var flagOverrides = map[string]func(dst *config.Config){
	"address":             func(dst *config.Config) { dst.Address = flagValues.Address },
	"port":                func(dst *config.Config) { dst.Port = flagValues.Port },
	"api-key":             func(dst *config.Config) { dst.APIKey = flagValues.APIKey },
	"url":                 func(dst *config.Config) { dst.CaldavURL = flagValues.CaldavURL },
	"cert":                func(dst *config.Config) { dst.ClientCert = flagValues.ClientCert },
	"key":                 func(dst *config.Config) { dst.ClientKey = flagValues.ClientKey },
	"profile-name":        func(dst *config.Config) { dst.ProfileName = flagValues.ProfileName },
	"profile-dir":         func(dst *config.Config) { dst.ProfileDir = flagValues.ProfileDir },
	"headless":            func(dst *config.Config) { dst.Headless = flagValues.Headless },
	"display":             func(dst *config.Config) { dst.Display = flagValues.Display },
	"xvfb":                func(dst *config.Config) { dst.XvfbBin = flagValues.XvfbBin },
	"install-browser":     func(dst *config.Config) { dst.InstallBrowser = flagValues.InstallBrowser },
	"ignore-https-errors": func(dst *config.Config) { dst.IgnoreHTTPSErrors = flagValues.IgnoreHTTPSErrors },
	"browser-timeout":     func(dst *config.Config) { dst.BrowserTimeout = flagValues.BrowserTimeout },
	"navigation-rate":     func(dst *config.Config) { dst.NavigationRate = flagValues.NavigationRate },
	"wizard-max-steps":    func(dst *config.Config) { dst.WizardMaxSteps = flagValues.WizardMaxSteps },
	"wizard-timeout":      func(dst *config.Config) { dst.WizardTimeout = flagValues.WizardTimeout },
	"reset-schedule":      func(dst *config.Config) { dst.ResetSchedule = flagValues.ResetSchedule },
	"timezone":            func(dst *config.Config) { dst.Timezone = flagValues.Timezone },
	"debug":               func(dst *config.Config) { dst.Debug = flagValues.Debug },
	"log-level":           func(dst *config.Config) { dst.LogLevel = flagValues.LogLevel },
	"log-json":            func(dst *config.Config) { dst.LogJSON = flagValues.LogJSON },
}

// loadConfig layers the command line flags over the file and environment,
// --show-config prints the result and stops the command.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := readConfig(cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if showConfig {
		dump, err := cfg.Dump(false)
		if err != nil {
			return config.Config{}, err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dump)
		return config.Config{}, errShowConfig
	}
	return cfg, nil
}

func readConfig(flags *pflag.FlagSet) (config.Config, error) {
	env, err := config.ReadEnvironment(dotEnvFile)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(configFile, env)
	if err != nil {
		return config.Config{}, err
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
	if err != nil && !errors.Is(err, errShowConfig) {
		serviceutil.Fatal("baikalctl failed", err)
	}
}

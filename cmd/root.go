package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/bfgsmin/internal/bfgs"
)

var (
	logLevel string
	cfgFile  string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bfgsmin",
	Short: "Unconstrained smooth minimization with BFGS",
	Long: `BFGSmin minimizes smooth differentiable functions using the BFGS
quasi-Newton method with a backtracking line search, as a one-shot CLI
or as an HTTP service with live progress streaming.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)

		// Solver defaults may come from a config file or environment
		// (BFGSMIN_MAXITER etc.); flags still win over both.
		viper.SetEnvPrefix("bfgsmin")
		viper.AutomaticEnv()
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return err
			}
			slog.Debug("Loaded config file", "path", viper.ConfigFileUsed())
		} else {
			viper.SetConfigName("bfgsmin")
			viper.AddConfigPath(".")
			if err := viper.ReadInConfig(); err == nil {
				slog.Debug("Loaded config file", "path", viper.ConfigFileUsed())
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file with solver defaults (default ./bfgsmin.yaml)")
}

// resolveOptions layers solver options: library defaults, then config
// file / environment, then any flag the user set explicitly.
func resolveOptions(cmd *cobra.Command) (bfgs.Options, error) {
	opts := bfgs.DefaultOptions()

	if viper.IsSet("maxiter") {
		opts.MaxIter = viper.GetInt("maxiter")
	}
	if viper.IsSet("tolx") {
		opts.TolX = viper.GetFloat64("tolx")
	}
	if viper.IsSet("tolfun") {
		opts.TolFun = viper.GetFloat64("tolfun")
	}
	if viper.IsSet("backtrack") {
		opts.Backtrack = viper.GetFloat64("backtrack")
	}
	if viper.IsSet("display") {
		display, err := bfgs.ParseDisplay(viper.GetString("display"))
		if err != nil {
			return opts, err
		}
		opts.Display = display
	}

	flags := cmd.Flags()
	if flags.Changed("maxiter") {
		opts.MaxIter, _ = flags.GetInt("maxiter")
	}
	if flags.Changed("tolx") {
		opts.TolX, _ = flags.GetFloat64("tolx")
	}
	if flags.Changed("tolfun") {
		opts.TolFun, _ = flags.GetFloat64("tolfun")
	}
	if flags.Changed("backtrack") {
		opts.Backtrack, _ = flags.GetFloat64("backtrack")
	}
	if flags.Changed("display") {
		s, _ := flags.GetString("display")
		display, err := bfgs.ParseDisplay(s)
		if err != nil {
			return opts, err
		}
		opts.Display = display
	}

	return opts, opts.Validate()
}

package cmd

import (
	"github.com/jsphweid/improv/config"
	"github.com/jsphweid/improv/constants"
	"github.com/jsphweid/improv/improviser"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	seed       int64
	order      int
)

var rootCmd = &cobra.Command{
	Use:   "improv",
	Short: "Markov chain MIDI improviser",
	Long: `improv learns a variable order markov chain from example MIDI files
and samples new music from it.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", constants.GetConfigPath(), "config file (missing file means defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed, 0 uses the config or the clock")
	rootCmd.PersistentFlags().IntVar(&order, "order", 0, "markov order, 0 uses the config")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadConfig applies the command line overrides on top of the config file
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if order != 0 {
		cfg.Order = order
		if cfg.MaxOrder < order {
			cfg.MaxOrder = order
		}
	}
	return cfg, cfg.Validate()
}

func newImproviser() (*improviser.Improviser, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return improviser.New(cfg)
}

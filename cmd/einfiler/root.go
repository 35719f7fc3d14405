package main

import (
	"flag"

	"github.com/ValerySidorin/einfiler/pkg/einfiler"
	util_log "github.com/ValerySidorin/einfiler/pkg/util/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfg        einfiler.Config
	goFlags    = flag.NewFlagSet("einfiler", flag.ContinueOnError)
	configFile string
)

var rootCmd = &cobra.Command{
	Use:               "einfiler",
	Short:             "Employer identification number filing automation",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	cfg.RegisterFlags(goFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(goFlags)
	rootCmd.PersistentFlags().StringVar(&configFile, "config.file", "", "YAML configuration file. Flags given on the command line override it.")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workerCmd)
}

// loadConfig layers flag defaults, the config file and explicit flags, in that order.
func loadConfig(cmd *cobra.Command, _ []string) error {
	explicit := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if goFlags.Lookup(f.Name) != nil {
			explicit[f.Name] = f.Value.String()
		}
	})

	if err := einfiler.LoadConfig(&cfg, configFile); err != nil {
		return err
	}
	for name, value := range explicit {
		if err := goFlags.Set(name, value); err != nil {
			return errors.Wrapf(err, "flag %s", name)
		}
	}

	util_log.InitLogger(&cfg.Log)
	return nil
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jakobjanot/pg-rrule/cmd/rrule/commands"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rrule",
	Short: "Expand RFC 5545 recurrence rules",
	Long: `rrule validates and expands iCalendar recurrence rules such as
"FREQ=WEEKLY;BYDAY=MO,WE,FR", keeps recurring events in a local store and
serves both over HTTP.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.NextCmd)
	rootCmd.AddCommand(commands.UpcomingCmd)
	rootCmd.AddCommand(commands.BetweenCmd)
	rootCmd.AddCommand(commands.ImportCmd)
	rootCmd.AddCommand(commands.EventsCmd)
	rootCmd.AddCommand(commands.AgendaCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.WatchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	commands.SetDefaults()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rrule.yaml)")
	flags.String("driver", "", "event store: memory, sqlite or postgres")
	flags.String("dsn", "", "database file (sqlite) or connection string (postgres)")
	flags.String("timezone", "", "zone for times given without an offset (default local)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")

	viper.BindPFlag(commands.KeyDriver, flags.Lookup("driver"))
	viper.BindPFlag(commands.KeyDSN, flags.Lookup("dsn"))
	viper.BindPFlag(commands.KeyTimezone, flags.Lookup("timezone"))
	viper.BindPFlag(commands.KeyLogLevel, flags.Lookup("log-level"))
	viper.BindPFlag(commands.KeyLogFormat, flags.Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".rrule")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RRULE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv(commands.KeyDSN, "RRULE_DSN", "RRULE_DATABASE_URL")

	if err := viper.ReadInConfig(); err == nil {
		commands.Logger().Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

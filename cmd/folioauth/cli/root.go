package cli

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folioauth",
		Short: "Admin authentication service for the portfolio CMS",
		Long: `folioauth runs the admin login, refresh and logout endpoints of the portfolio CMS.

Configuration is read from folioauth.yaml (or --config), then FOLIOAUTH_* environment
variables, which may also be supplied through a .env file in the working directory.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./folioauth.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newLoadtestCmd())

	return cmd
}

func initConfig() {
	_ = godotenv.Load() // .env is optional

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("folioauth")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.folioauth")
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("FOLIOAUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // config file is optional
}

// Package cli defines the focusrecon command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "focusrecon",
	Short: "Reconstruct balance sheets from OCR'd broker-dealer filings",
	Long: `focusrecon rebuilds annual balance sheets from the noisy OCR output of
scanned SEC X-17A-5 (FOCUS) filings.

It stitches balance-sheet fragments scattered across pages, repairs
merged rows and misread digits, resolves the stated unit scale, strips
derived subtotal rows by backward-sum reconciliation, classifies every
line item into a canonical category, and stores one flat record per
(broker-dealer, fiscal year) with a reconciliation verdict attached.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("focusrecon v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.focusrecon/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.focusrecon")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables matching FOCUSRECON_*
	viper.SetEnvPrefix("FOCUSRECON")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/oneconcern/trellis/internal/prof"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trellis",
	Short: "Trellis is a branchable, mergeable store of trees",
	Long: `Trellis stores trees of contents with a git-like history.

Every change to a branch creates a commit. Branches may be merged, watched,
exported as self-contained slices and synchronized with other repositories.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if params.root.cpuProf {
			stop, err := prof.StartCPU("cpu.prof")
			if err != nil {
				wrapFatalln("cpu profile", err)
				return
			}
			stopCPUProf = stop
		}
	},
	// upstream api note:  *PostRun functions aren't called in case of a panic() in Run
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopCPUProf != nil {
			stopCPUProf()
			stopCPUProf = nil
		}
		if params.root.memProf != "" {
			if err := prof.WriteMem(params.root.memProf, cmd.Name()); err != nil {
				wrapFatalln("memory profile", err)
			}
		}
	},
}

var stopCPUProf func()

var config *CLIConfig

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		osExit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
	addGlobalFlags(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("root", ".trellis")
	viper.SetDefault("backend", backendLocalFS)
	viper.SetDefault("branch", "main")
	viper.SetDefault("author", os.Getenv("USER"))
	viper.SetDefault("loglevel", "info")

	if os.Getenv("TRELLIS_CONFIG") != "" {
		viper.SetConfigFile(os.Getenv("TRELLIS_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".trellis"))
		}
		viper.SetConfigName("trellis")
	}

	viper.SetEnvPrefix("trellis")
	viper.AutomaticEnv() // read in environment variables that match
	if err := viper.ReadInConfig(); err == nil {
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	}

	var err error
	config, err = newConfig()
	if err != nil {
		wrapFatalln("read configuration", err)
		return
	}
	config.setParams(&params)
}

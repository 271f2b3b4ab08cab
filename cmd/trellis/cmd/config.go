package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	backendLocalFS = "localfs"
	backendBadger  = "badger"
	backendMemory  = "memory"
)

// CLIConfig describes the CLI configuration.
type CLIConfig struct {
	// viper decodes keys by field name: keep field names the same as the serialized names
	Root     string            `json:"root" yaml:"root"`         // directory of the repository
	Backend  string            `json:"backend" yaml:"backend"`   // object storage: localfs, badger or memory
	Branch   string            `json:"branch" yaml:"branch"`     // default branch
	Author   string            `json:"author" yaml:"author"`     // author of commits
	Loglevel string            `json:"loglevel" yaml:"loglevel"` // debug, info, warn, error or none
	Merge    map[string]string `json:"merge" yaml:"merge"`       // merge strategies by path pattern
}

func newConfig() (*CLIConfig, error) {
	var config CLIConfig
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// setParams fills in flags left empty on the command line
func (c *CLIConfig) setParams(flags *flagsT) {
	if flags.repo.Root == "" {
		flags.repo.Root = c.Root
	}
	if flags.repo.Backend == "" {
		flags.repo.Backend = c.Backend
	}
	if flags.branch.Name == "" {
		flags.branch.Name = c.Branch
	}
	if flags.commit.Author == "" {
		flags.commit.Author = c.Author
	}
	if flags.root.logLevel == "" {
		flags.root.logLevel = c.Loglevel
	}
}

// configCmd represents the config related commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage the configuration",
	Long: `Commands to manage the trellis CLI configuration.

The configuration is read from trellis.yaml, in the current directory or in $HOME/.trellis,
or from the file set by $TRELLIS_CONFIG. Settings may be overridden with TRELLIS_* environment variables.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		b, err := yaml.Marshal(config)
		if err != nil {
			wrapFatalln("marshal configuration", err)
			return
		}
		logStdOut("%s", string(b))
	},
}

func init() {
	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}

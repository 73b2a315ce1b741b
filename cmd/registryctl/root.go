package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"recordshare/internal/platform/config"
)

// defaultConfigPath is read when --config is not given and the file exists.
const defaultConfigPath = "~/.recordshare.yaml"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "registryctl",
		Short:         "Operate the record registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (.yaml, .yml or .toml); defaults to "+defaultConfigPath+" when present")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load resolves the config path, expanding ~, and falls back to defaults plus
// environment when no file is available.
func (o *rootOptions) load() (config.Config, error) {
	path := o.configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("expand config path: %w", err)
	}
	if !explicit {
		if _, err := os.Stat(expanded); errors.Is(err, fs.ErrNotExist) {
			expanded = ""
		}
	}
	return config.Load(expanded)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the registryctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

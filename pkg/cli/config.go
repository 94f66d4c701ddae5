package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mchmarny/credrank/pkg/config"
	"github.com/urfave/cli/v3"
)

const configDirFlagName = "dir"

func newConfigCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Config file operations",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Creates the default config file if it does not exist and prints it",
				Action: cmdConfigInit,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  configDirFlagName,
						Usage: fmt.Sprintf("Config directory (optional, defaults to $HOME/.%s)", appName),
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Prints the effective config",
				Action: cmdConfigShow,
				Flags: []cli.Flag{
					newConfigFileFlag(),
				},
			},
		},
	}
}

func cmdConfigInit(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String(configDirFlagName)
	if dir == "" {
		d, created, err := config.GetOrCreateHomeDir(appName)
		if err != nil {
			return fmt.Errorf("error getting config dir: %w", err)
		}
		slog.Debug("config dir", "path", d, "created", created)
		dir = d
	}

	cfg, err := config.ReadOrCreate(dir)
	if err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}
	slog.Info("config ready", "path", filepath.Join(dir, config.FileName))

	return encode(cmd, cfg)
}

func cmdConfigShow(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String(configFlagName))
	if err != nil {
		return err
	}
	return encode(cmd, cfg)
}

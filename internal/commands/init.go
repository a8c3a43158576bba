package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	rotatebackups "github.com/bit2swaz/rotate-backups"
)

const configFileName = "rotate-backups.ini"

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write an example rotate-backups.ini",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := configFileName
			if len(args) == 1 {
				target = args[0]
			}
			return runInit(cmd, target)
		},
	}
}

func runInit(cmd *cobra.Command, target string) error {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, configFileName)
	}

	if _, err := os.Stat(target); err == nil {
		err := fmt.Errorf("%s already exists", target)
		logError(cmd.ErrOrStderr(), err)
		return newExitError(exitFailure, err)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", target, err)
	}

	if err := os.WriteFile(target, rotatebackups.ConfigTemplate(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	logInfo(cmd.OutOrStdout(), fmt.Sprintf("Generated %s", target))
	return nil
}

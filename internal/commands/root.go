package commands

import (
	"github.com/spf13/cobra"

	"github.com/bit2swaz/rotate-backups/internal/config"
)

func NewRootCommand() *cobra.Command {
	opts := &rotateOptions{}
	root := &cobra.Command{
		Use:   "rotate-backups [flags] [LOCATION...]",
		Short: "Rotate backups using a bucketed retention scheme",
		Long: `rotate-backups keeps the newest backup of each hourly, daily, weekly,
monthly and yearly period up to the configured counts and deletes the rest.
Timestamps are read from backup names. A LOCATION is a local directory or an
s3://bucket/prefix, gs://bucket/prefix or wasbs://container/prefix URL;
without locations the configuration file is used.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRotate(cmd, opts, args)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.hourly, "hourly", "H", "", "number of hourly backups to keep, or 'always'")
	flags.StringVarP(&opts.daily, "daily", "d", "", "number of daily backups to keep, or 'always'")
	flags.StringVarP(&opts.weekly, "weekly", "w", "", "number of weekly backups to keep, or 'always'")
	flags.StringVarP(&opts.monthly, "monthly", "m", "", "number of monthly backups to keep, or 'always'")
	flags.StringVarP(&opts.yearly, "yearly", "y", "", "number of yearly backups to keep, or 'always'")
	flags.StringArrayVarP(&opts.include, "include", "I", nil, "only rotate names matching this pattern (repeatable)")
	flags.StringArrayVarP(&opts.exclude, "exclude", "x", nil, "never rotate names matching this pattern (repeatable)")
	config.AddSettingsFlags(flags)

	root.AddCommand(newInitCommand())

	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/bit2swaz/rotate-backups/internal/config"
	"github.com/bit2swaz/rotate-backups/internal/engine"
	"github.com/bit2swaz/rotate-backups/internal/logging"
	"github.com/bit2swaz/rotate-backups/internal/report"
	"github.com/bit2swaz/rotate-backups/internal/rotation"
	"github.com/bit2swaz/rotate-backups/internal/storage"
	"github.com/bit2swaz/rotate-backups/pkg/observability"
)

var errNoLocations = errors.New("no locations given and no configuration file found")

type rotateOptions struct {
	hourly  string
	daily   string
	weekly  string
	monthly string
	yearly  string
	include []string
	exclude []string
}

// retention returns the granularities set on the command line.
func (o *rotateOptions) retention(flags *pflag.FlagSet) map[string]string {
	values := map[string]string{
		"hourly":  o.hourly,
		"daily":   o.daily,
		"weekly":  o.weekly,
		"monthly": o.monthly,
		"yearly":  o.yearly,
	}
	out := make(map[string]string)
	for name, value := range values {
		if flags.Changed(name) {
			out[name] = strings.TrimSpace(value)
		}
	}
	return out
}

// overrides are the command-line values layered on top of config sections.
type overrides struct {
	retention map[string]string
	include   []string
	exclude   []string
	dryRun    bool
}

func runRotate(cmd *cobra.Command, opts *rotateOptions, args []string) error {
	errOut := cmd.ErrOrStderr()
	fail := func(code int, err error) error {
		logError(errOut, err)
		return newExitError(code, err)
	}

	settings, err := config.LoadSettings(cmd.Flags())
	if err != nil {
		return fail(exitUsage, err)
	}
	format, err := report.ParseFormat(settings.Output)
	if err != nil {
		return fail(exitUsage, err)
	}

	logger, err := logging.New(logging.Options{
		Verbose:   settings.Verbose,
		Quiet:     settings.Quiet,
		Syslog:    settings.Syslog,
		SyslogTag: settings.SyslogTag,
		Output:    errOut,
	})
	if err != nil {
		return fail(exitUsage, err)
	}
	defer func() { _ = logger.Sync() }()

	cli := overrides{
		retention: opts.retention(cmd.Flags()),
		include:   opts.include,
		exclude:   opts.exclude,
		dryRun:    settings.DryRun,
	}
	if _, err := rotation.NewScheme(cli.retention); err != nil {
		return fail(exitUsage, err)
	}
	if _, err := rotation.NewFilter(cli.include, cli.exclude, nil); err != nil {
		return fail(exitUsage, err)
	}

	cfgPath, err := config.Locate(settings.ConfigFile)
	if err != nil {
		return fail(exitUsage, err)
	}
	var file *config.File
	if cfgPath != "" {
		file, err = config.Load(cfgPath)
		if err != nil {
			return fail(exitUsage, err)
		}
		logger.Debug("loaded configuration", zap.String("path", cfgPath), zap.Int("locations", len(file.Locations)))
		for _, loc := range file.Locations {
			if len(loc.Unknown) > 0 {
				logWarning(errOut, fmt.Sprintf("ignoring unknown keys in [%s]: %s", loc.Name, strings.Join(loc.Unknown, ", ")))
			}
		}
	}

	targets := buildTargets(args, file, cli)
	if len(targets) == 0 {
		_ = cmd.Usage()
		return fail(exitUsage, errNoLocations)
	}

	backends := engine.NewBackends(backendOptions(settings))
	defer func() {
		if err := backends.Close(); err != nil {
			logWarning(errOut, err.Error())
		}
	}()

	metrics := observability.NewMetrics()
	executor := engine.NewExecutor(engine.Options{
		Opener:        backends.Open,
		Logger:        logger,
		Metrics:       metrics,
		Concurrency:   settings.Concurrency,
		DeleteWorkers: settings.DeleteWorkers,
	})

	summary := executor.Run(cmd.Context(), targets)

	if err := report.Write(cmd.OutOrStdout(), format, report.Build(summary)); err != nil {
		return fail(exitFailure, err)
	}

	if settings.MetricsFile != "" {
		if err := metrics.WriteTextfile(settings.MetricsFile); err != nil {
			logWarning(errOut, err.Error())
		}
	}

	if summary.Failed() {
		return newExitError(exitFailure, errors.New("one or more locations failed to rotate"))
	}
	return nil
}

// buildTargets resolves command-line locations against the configuration
// file, or uses every configured location when none are given. Command-line
// retention replaces configured values per granularity; patterns are added.
func buildTargets(args []string, file *config.File, cli overrides) []engine.Target {
	var targets []engine.Target
	if len(args) == 0 {
		if file == nil {
			return nil
		}
		for _, loc := range file.Locations {
			targets = append(targets, applyOverrides(targetFromLocation(loc), cli))
		}
		return targets
	}

	for _, arg := range args {
		target := engine.Target{Location: config.ExpandPath(arg)}
		if loc, ok := file.Lookup(arg); ok {
			target = targetFromLocation(loc)
		}
		targets = append(targets, applyOverrides(target, cli))
	}
	return targets
}

func targetFromLocation(loc config.Location) engine.Target {
	retention := make(map[string]string, len(loc.Retention))
	for k, v := range loc.Retention {
		retention[k] = v
	}
	return engine.Target{
		Location:    loc.Path,
		Retention:   retention,
		Include:     append([]string(nil), loc.Include...),
		Exclude:     append([]string(nil), loc.Exclude...),
		ExcludeFile: loc.ExcludeFile,
		DryRun:      loc.DryRun,
	}
}

func applyOverrides(target engine.Target, cli overrides) engine.Target {
	if target.Retention == nil {
		target.Retention = make(map[string]string, len(cli.retention))
	}
	for k, v := range cli.retention {
		target.Retention[k] = v
	}
	target.Include = append(target.Include, cli.include...)
	target.Exclude = append(target.Exclude, cli.exclude...)
	target.DryRun = target.DryRun || cli.dryRun
	return target
}

func backendOptions(settings config.Settings) engine.BackendOptions {
	return engine.BackendOptions{
		S3: storage.S3Options{
			Region:          settings.S3Region,
			Endpoint:        settings.S3Endpoint,
			AccessKeyID:     settings.AccessKeyID,
			SecretAccessKey: settings.SecretAccessKey,
			R2AccountID:     settings.R2AccountID,
			PathStyle:       settings.S3PathStyle,
		},
		GCS: storage.GCSOptions{
			Endpoint:        settings.GCSEndpoint,
			CredentialsFile: config.ExpandPath(settings.GCSCredentialsFile),
			CredentialsJSON: settings.GCSCredentialsJSON,
		},
		Azure: storage.AzureOptions{
			ConnectionString: settings.AzureConnectionString,
			AccountName:      settings.AzureAccountName,
			AccountKey:       settings.AzureAccountKey,
			Endpoint:         settings.AzureEndpoint,
		},
	}
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. ROTATE_BACKUPS_DRY_RUN.
const EnvPrefix = "ROTATE_BACKUPS"

const (
	FlagConfig          = "config"
	FlagDryRun          = "dry-run"
	FlagVerbose         = "verbose"
	FlagQuiet           = "quiet"
	FlagSyslog          = "syslog"
	FlagSyslogTag       = "syslog-tag"
	FlagOutput          = "output"
	FlagMetricsFile     = "metrics-file"
	FlagConcurrency     = "concurrency"
	FlagDeleteWorkers   = "delete-workers"
	FlagAccessKeyID     = "aws-access-key-id"
	FlagSecretAccessKey = "aws-secret-access-key"
	FlagS3Endpoint      = "s3-endpoint"
	FlagS3Region        = "s3-region"
	FlagS3PathStyle     = "s3-path-style"
	FlagR2AccountID     = "r2-account-id"

	FlagGCSEndpoint        = "gcs-endpoint"
	FlagGCSCredentialsFile = "gcs-credentials-file"
	FlagGCSCredentialsJSON = "gcs-credentials-json"
	FlagAzureAccountName   = "azure-account-name"
	FlagAzureAccountKey    = "azure-account-key"
	FlagAzureEndpoint      = "azure-endpoint"
	FlagAzureConnection    = "azure-connection-string"
)

// Settings are the run-wide options that come from flags or the environment.
type Settings struct {
	ConfigFile  string
	DryRun      bool
	Verbose     int
	Quiet       int
	Syslog      bool
	SyslogTag   string
	Output      string
	MetricsFile string

	Concurrency   int
	DeleteWorkers int

	AccessKeyID     string
	SecretAccessKey string
	S3Endpoint      string
	S3Region        string
	S3PathStyle     bool
	R2AccountID     string

	GCSEndpoint        string
	GCSCredentialsFile string
	GCSCredentialsJSON string

	AzureAccountName      string
	AzureAccountKey       string
	AzureEndpoint         string
	AzureConnectionString string
}

// AddSettingsFlags registers the flags read by LoadSettings.
func AddSettingsFlags(flags *pflag.FlagSet) {
	flags.StringP(FlagConfig, "c", "", "configuration file (default ~/"+UserConfigName+" then "+SystemConfigFile+")")
	flags.BoolP(FlagDryRun, "n", false, "show what would be deleted without deleting anything")
	flags.CountP(FlagVerbose, "v", "increase logging verbosity (repeatable)")
	flags.CountP(FlagQuiet, "q", "decrease logging verbosity (repeatable)")
	flags.Bool(FlagSyslog, false, "also send log messages to the local syslog daemon")
	flags.String(FlagSyslogTag, "rotate-backups", "tag for syslog messages")
	flags.StringP(FlagOutput, "o", "text", "report format: text, json or yaml")
	flags.String(FlagMetricsFile, "", "write Prometheus metrics to this textfile after the run")
	flags.Int(FlagConcurrency, 4, "number of locations rotated in parallel")
	flags.Int(FlagDeleteWorkers, 4, "number of deletions in flight per location")
	flags.StringP(FlagAccessKeyID, "U", "", "access key for s3:// locations")
	flags.StringP(FlagSecretAccessKey, "P", "", "secret key for s3:// locations")
	flags.String(FlagS3Endpoint, "", "custom S3 endpoint, e.g. a MinIO server")
	flags.String(FlagS3Region, "", "S3 region")
	flags.Bool(FlagS3PathStyle, false, "use path-style S3 addressing")
	flags.String(FlagR2AccountID, "", "Cloudflare R2 account id; selects the R2 endpoint")
	flags.String(FlagGCSEndpoint, "", "custom Cloud Storage endpoint for gs:// locations, e.g. an emulator")
	flags.String(FlagGCSCredentialsFile, "", "service account key file for gs:// locations")
	flags.String(FlagGCSCredentialsJSON, "", "service account key JSON for gs:// locations; usually set through the environment")
	flags.String(FlagAzureAccountName, "", "storage account for wasbs:// locations")
	flags.String(FlagAzureAccountKey, "", "storage account key for wasbs:// locations")
	flags.String(FlagAzureEndpoint, "", "custom blob endpoint for wasbs:// locations, e.g. Azurite")
	flags.String(FlagAzureConnection, "", "connection string for wasbs:// locations; overrides the account flags")
}

// LoadSettings resolves settings from flags, falling back to
// ROTATE_BACKUPS_* environment variables and then flag defaults.
func LoadSettings(flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Settings{}, fmt.Errorf("bind flags: %w", err)
	}

	s := Settings{
		ConfigFile:      v.GetString(FlagConfig),
		DryRun:          v.GetBool(FlagDryRun),
		Verbose:         v.GetInt(FlagVerbose),
		Quiet:           v.GetInt(FlagQuiet),
		Syslog:          v.GetBool(FlagSyslog),
		SyslogTag:       v.GetString(FlagSyslogTag),
		Output:          strings.ToLower(strings.TrimSpace(v.GetString(FlagOutput))),
		MetricsFile:     v.GetString(FlagMetricsFile),
		Concurrency:     v.GetInt(FlagConcurrency),
		DeleteWorkers:   v.GetInt(FlagDeleteWorkers),
		AccessKeyID:     v.GetString(FlagAccessKeyID),
		SecretAccessKey: v.GetString(FlagSecretAccessKey),
		S3Endpoint:      v.GetString(FlagS3Endpoint),
		S3Region:        v.GetString(FlagS3Region),
		S3PathStyle:     v.GetBool(FlagS3PathStyle),
		R2AccountID:     v.GetString(FlagR2AccountID),

		GCSEndpoint:        v.GetString(FlagGCSEndpoint),
		GCSCredentialsFile: v.GetString(FlagGCSCredentialsFile),
		GCSCredentialsJSON: v.GetString(FlagGCSCredentialsJSON),

		AzureAccountName:      v.GetString(FlagAzureAccountName),
		AzureAccountKey:       v.GetString(FlagAzureAccountKey),
		AzureEndpoint:         v.GetString(FlagAzureEndpoint),
		AzureConnectionString: v.GetString(FlagAzureConnection),
	}
	if s.Concurrency < 1 {
		return Settings{}, fmt.Errorf("--%s must be at least 1", FlagConcurrency)
	}
	if s.DeleteWorkers < 1 {
		return Settings{}, fmt.Errorf("--%s must be at least 1", FlagDeleteWorkers)
	}
	return s, nil
}

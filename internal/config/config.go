package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/propboard/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	CORSAllowedOrigins         []string
	SwaggerEnabled             bool
	LogLevel                   logging.Level
	DBURL                      string
	ArchiveEnabled             bool
	ArchiveMaxPerStream        int
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	PrometheusEnabled          bool
	Sports                     []string
	TeamAliasesFile            string
	ProviderTimeout            time.Duration
	ProviderCircuitEnabled     bool
	ProviderCircuitFailures    int
	ProviderCircuitOpenTimeout time.Duration
	ESPN                       ProviderConfig
	PropMarket                 ProviderConfig
	PropGen                    ProviderConfig
}

// ProviderConfig is the per-provider block read from <PREFIX>_* variables.
type ProviderConfig struct {
	Enabled bool
	BaseURL string
	Token   string
	Timeout time.Duration
	Sports  []string
}

var supportedSports = map[string]struct{}{
	"nba": {},
	"nfl": {},
	"nhl": {},
	"mlb": {},
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := appEnv != EnvProd
	swaggerEnabled, err := getEnvAsBool("SWAGGER_ENABLED", swaggerDefault)
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := getEnvAsDuration("APP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := getEnvAsDuration("APP_WRITE_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := getEnvAsBool("UPTRACE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := getEnvAsBool("UPTRACE_LOGS_ENABLED", true)
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := getEnvAsBool("PPROF_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := getEnvAsBool("PYROSCOPE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	prometheusEnabled, err := getEnvAsBool("PROMETHEUS_ENABLED", true)
	if err != nil {
		return Config{}, err
	}

	archiveEnabled, err := getEnvAsBool("ARCHIVE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	archiveMaxPerStream, err := getEnvAsInt("ARCHIVE_MAX_PER_STREAM", 50)
	if err != nil {
		return Config{}, fmt.Errorf("parse ARCHIVE_MAX_PER_STREAM: %w", err)
	}
	if archiveMaxPerStream < 1 {
		return Config{}, fmt.Errorf("ARCHIVE_MAX_PER_STREAM must be >= 1")
	}
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if archiveEnabled && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when ARCHIVE_ENABLED=true")
	}

	sports, err := parseSports("SPORTS", getEnv("SPORTS", "nba,nfl,nhl,mlb"))
	if err != nil {
		return Config{}, err
	}

	providerTimeout, err := getEnvAsDuration("PROVIDER_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	circuitEnabled, err := getEnvAsBool("PROVIDER_CIRCUIT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	circuitFailures, err := getEnvAsInt("PROVIDER_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse PROVIDER_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailures < 1 {
		return Config{}, fmt.Errorf("PROVIDER_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := getEnvAsDuration("PROVIDER_CIRCUIT_OPEN_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}

	espn, err := loadProvider("ESPN", true, "https://site.api.espn.com/apis/site/v2/sports", false, providerTimeout, sports)
	if err != nil {
		return Config{}, err
	}
	propMarket, err := loadProvider("PROPMARKET", false, "https://api.propmarket.io", true, providerTimeout, sports)
	if err != nil {
		return Config{}, err
	}
	propGen, err := loadProvider("PROPGEN", false, "http://propgen.internal:8080", false, providerTimeout, sports)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "propboard-api"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:             swaggerEnabled,
		LogLevel:                   logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		DBURL:                      dbURL,
		ArchiveEnabled:             archiveEnabled,
		ArchiveMaxPerStream:        archiveMaxPerStream,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		PrometheusEnabled:          prometheusEnabled,
		Sports:                     sports,
		TeamAliasesFile:            strings.TrimSpace(getEnv("TEAM_ALIASES_FILE", "")),
		ProviderTimeout:            providerTimeout,
		ProviderCircuitEnabled:     circuitEnabled,
		ProviderCircuitFailures:    circuitFailures,
		ProviderCircuitOpenTimeout: circuitOpenTimeout,
		ESPN:                       espn,
		PropMarket:                 propMarket,
		PropGen:                    propGen,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func loadProvider(prefix string, enabledByDefault bool, baseURL string, tokenRequired bool, timeout time.Duration, sports []string) (ProviderConfig, error) {
	enabled, err := getEnvAsBool(prefix+"_ENABLED", enabledByDefault)
	if err != nil {
		return ProviderConfig{}, err
	}
	providerTimeout, err := getEnvAsDuration(prefix+"_TIMEOUT", timeout.String())
	if err != nil {
		return ProviderConfig{}, err
	}
	providerSports, err := parseSports(prefix+"_SPORTS", getEnv(prefix+"_SPORTS", strings.Join(sports, ",")))
	if err != nil {
		return ProviderConfig{}, err
	}

	out := ProviderConfig{
		Enabled: enabled,
		BaseURL: strings.TrimSpace(getEnv(prefix+"_BASE_URL", baseURL)),
		Token:   strings.TrimSpace(getEnv(prefix+"_TOKEN", "")),
		Timeout: providerTimeout,
		Sports:  providerSports,
	}
	if !out.Enabled {
		return out, nil
	}
	if out.BaseURL == "" {
		return ProviderConfig{}, fmt.Errorf("%s_BASE_URL is required when %s_ENABLED=true", prefix, prefix)
	}
	if tokenRequired && out.Token == "" {
		return ProviderConfig{}, fmt.Errorf("%s_TOKEN is required when %s_ENABLED=true", prefix, prefix)
	}
	return out, nil
}

func parseSports(key, raw string) ([]string, error) {
	items := splitCSV(strings.ToLower(raw))
	if len(items) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", key)
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := supportedSports[item]; !ok {
			return nil, fmt.Errorf("invalid %s item %q: valid values are nba, nfl, nhl, mlb", key, item)
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	out, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

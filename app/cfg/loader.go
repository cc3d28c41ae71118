package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	EnvFile string `long:"env-file" env:"ENV_FILE" default:".env" description:"Optional dotenv file loaded before parsing"`

	// HTTP server
	Port    string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://docs.example.com)"`

	// Document store
	Store      string `long:"store" env:"STORE" default:"sqlite" choice:"sqlite" choice:"cosmos" description:"Document store backend"`
	SQLitePath string `long:"sqlite-path" env:"SQLITE_PATH" default:"./data/eyesondocs.db" description:"SQLite database file"`
	SeedFile   string `long:"seed-file" env:"SEED_FILE" description:"JSON-lines file of update records imported into SQLite at startup"`

	// Azure Cosmos DB
	CosmosAccount          string `long:"cosmos-account" env:"AZURE_COSMOSDB_ACCOUNT" description:"Cosmos DB account name"`
	CosmosEndpoint         string `long:"cosmos-endpoint" env:"AZURE_COSMOSDB_ENDPOINT" description:"Cosmos DB endpoint (derived from the account name when empty)"`
	CosmosAccountKey       string `long:"cosmos-account-key" env:"AZURE_COSMOSDB_ACCOUNT_KEY" description:"Cosmos DB account key (service principal is used when empty)"`
	CosmosDatabase         string `long:"cosmos-database" env:"AZURE_COSMOSDB_DATABASE" description:"Cosmos DB database name"`
	CosmosUpdatesContainer string `long:"cosmos-updates-container" env:"AZURE_COSMOSDB_CONVERSATIONS_CONTAINER" description:"Container holding update records"`
	CosmosTrafficContainer string `long:"cosmos-traffic-container" env:"AZURE_COSMOSDB_USER_TRAFFIC_CONTAINER" description:"Container holding visit records"`
	CosmosTopicPartitioned bool   `long:"cosmos-topic-partitioned" env:"COSMOS_TOPIC_PARTITIONED" description:"Update container is partitioned by /topic"`
	TenantID               string `long:"tenant-id" env:"APP_TENANT_ID" description:"Azure AD tenant ID"`
	ClientID               string `long:"client-id" env:"APP_CLIENT_ID" description:"Azure AD application (client) ID"`
	ClientSecret           string `long:"client-secret" env:"APP_CLIENT_SECRET" description:"Azure AD application secret"`

	// Products and background work
	ProductsFile          string `long:"products-file" env:"PRODUCTS_FILE" default:"./target_config.json" description:"Target config listing product topics (JSON or YAML)"`
	CatalogReloadInterval int    `long:"catalog-reload-interval" env:"CATALOG_RELOAD_INTERVAL" default:"300" description:"Product catalog reload interval in seconds"`
	WorkerCount           int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`

	// Access
	AdminPassword  string `long:"admin-password" env:"ADMIN_PASSWORD" description:"Shared password for the usage view"`
	SessionSecret  string `long:"session-secret" env:"SESSION_SECRET" description:"HMAC secret for session and usage tokens"`
	RequireSession bool   `long:"require-session" env:"REQUIRE_SESSION" description:"Reject anonymous callers on update endpoints"`

	// Application metadata
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	if err := loadEnvFile(args); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:                   raw.Port,
		BaseUrl:                strings.TrimRight(raw.BaseUrl, "/"),
		Store:                  raw.Store,
		SQLitePath:             raw.SQLitePath,
		SeedFile:               raw.SeedFile,
		CosmosAccount:          raw.CosmosAccount,
		CosmosEndpoint:         raw.CosmosEndpoint,
		CosmosAccountKey:       raw.CosmosAccountKey,
		CosmosDatabase:         raw.CosmosDatabase,
		CosmosUpdatesContainer: raw.CosmosUpdatesContainer,
		CosmosTrafficContainer: raw.CosmosTrafficContainer,
		CosmosTopicPartitioned: raw.CosmosTopicPartitioned,
		TenantID:               raw.TenantID,
		ClientID:               raw.ClientID,
		ClientSecret:           raw.ClientSecret,
		ProductsFile:           raw.ProductsFile,
		CatalogReloadInterval:  time.Duration(raw.CatalogReloadInterval) * time.Second,
		WorkerCount:            raw.WorkerCount,
		AdminPassword:          raw.AdminPassword,
		SessionSecret:          raw.SessionSecret,
		RequireSession:         raw.RequireSession,
		Timezone:               raw.Timezone,
		Debug:                  raw.Debug,
		LogFormat:              raw.LogFormat,
		Version:                GetVersion(),
	}

	if cfg.CosmosEndpoint == "" && cfg.CosmosAccount != "" {
		cfg.CosmosEndpoint = fmt.Sprintf("https://%s.documents.azure.com:443/", cfg.CosmosAccount)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

type setting struct {
	name  string
	value string
}

// Validate fails fast on settings the selected store cannot start without.
func (c *Cfg) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.CatalogReloadInterval <= 0 {
		return fmt.Errorf("catalog reload interval must be positive")
	}

	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite store")
		}
	case StoreCosmos:
		required := []setting{
			{"AZURE_COSMOSDB_ENDPOINT or AZURE_COSMOSDB_ACCOUNT", c.CosmosEndpoint},
			{"AZURE_COSMOSDB_DATABASE", c.CosmosDatabase},
			{"AZURE_COSMOSDB_CONVERSATIONS_CONTAINER", c.CosmosUpdatesContainer},
			{"AZURE_COSMOSDB_USER_TRAFFIC_CONTAINER", c.CosmosTrafficContainer},
		}
		if c.CosmosAccountKey == "" {
			required = append(required,
				setting{"APP_TENANT_ID", c.TenantID},
				setting{"APP_CLIENT_ID", c.ClientID},
				setting{"APP_CLIENT_SECRET", c.ClientSecret},
			)
		}
		for _, r := range required {
			if r.value == "" {
				return fmt.Errorf("%s is required for the cosmos store", r.name)
			}
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// loadEnvFile reads the dotenv file named by --env-file (or ENV_FILE) into the
// process environment. Variables already set win.
func loadEnvFile(args []string) error {
	path := cmp.Or(os.Getenv("ENV_FILE"), ".env")
	for i, arg := range args {
		if v, ok := strings.CutPrefix(arg, "--env-file="); ok {
			path = v
		} else if arg == "--env-file" && i+1 < len(args) {
			path = args[i+1]
		}
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}

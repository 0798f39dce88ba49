// Package config assembles the service configuration from the environment.
// Everything is addressable as CASHU_RECOVERY_<SECTION>_<KEY>; a local
// .env file is folded in first when present, which keeps dev runs and CI
// out of each other's hair.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Mint configures the client side of the mint connection.
type Mint struct {
	URL            string
	Timeout        time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	RejectCooldown time.Duration
}

// Wallet carries the seed material. Mnemonic and passphrase are secrets:
// anything rendering config (the env command, logs) must redact them.
type Wallet struct {
	Mnemonic   string
	Passphrase string
}

// Scan tunes the recovery engine.
type Scan struct {
	BatchSize           uint32
	EmptyBatchThreshold int
	MaxParallelKeysets  int
	CheckSpent          bool
	// Keysets optionally pins the scan to explicit keyset IDs instead of
	// discovering all of them from the mint.
	Keysets []string
}

// Store configures the local proof database.
type Store struct {
	Enabled bool
	Path    string
}

// Backup configures encrypted snapshot output.
type Backup struct {
	SnapshotPath string
}

// Simulator configures the local development mint. SignAll makes restore
// sign unknown outputs instead of only echoing seeded history, which turns
// every counter into a match; leave it off unless a demo needs it.
type Simulator struct {
	ListenAddress string
	Seed          string
	DatabasePath  string
	Unit          string
	SignAll       bool
}

// Logger configures process-wide logging.
type Logger struct {
	Level              string
	PrettyPrintConsole bool
}

// Service is the root configuration consumed by the commands.
type Service struct {
	Mint      Mint
	Wallet    Wallet
	Scan      Scan
	Store     Store
	Backup    Backup
	Simulator Simulator
	Logger    Logger
}

var (
	configOnce sync.Once
	config     Service
)

// DefaultServiceConfigFromEnv returns the process-wide configuration,
// assembled exactly once.
func DefaultServiceConfigFromEnv() Service {
	configOnce.Do(func() {
		_ = gotenv.Load()
		config = serviceConfigFromEnv()
	})
	return config
}

func serviceConfigFromEnv() Service {
	v := viper.New()
	v.SetEnvPrefix("CASHU_RECOVERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mint.url", "http://127.0.0.1:3338")
	v.SetDefault("mint.timeout", 30*time.Second)
	v.SetDefault("mint.max_attempts", 4)
	v.SetDefault("mint.backoff_base", 500*time.Millisecond)
	v.SetDefault("mint.backoff_max", 8*time.Second)
	v.SetDefault("mint.reject_cooldown", 5*time.Second)

	v.SetDefault("wallet.mnemonic", "")
	v.SetDefault("wallet.passphrase", "")

	v.SetDefault("scan.batch_size", 100)
	v.SetDefault("scan.empty_batch_threshold", 3)
	v.SetDefault("scan.max_parallel_keysets", 4)
	v.SetDefault("scan.check_spent", false)
	v.SetDefault("scan.keysets", []string{})

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "cashu-recovery.db")

	v.SetDefault("backup.snapshot_path", "")

	v.SetDefault("simulator.listen_address", ":3338")
	v.SetDefault("simulator.seed", "")
	v.SetDefault("simulator.database_path", "")
	v.SetDefault("simulator.unit", "sat")
	v.SetDefault("simulator.sign_all", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty_print_console", true)

	return Service{
		Mint: Mint{
			URL:            v.GetString("mint.url"),
			Timeout:        v.GetDuration("mint.timeout"),
			MaxAttempts:    v.GetInt("mint.max_attempts"),
			BackoffBase:    v.GetDuration("mint.backoff_base"),
			BackoffMax:     v.GetDuration("mint.backoff_max"),
			RejectCooldown: v.GetDuration("mint.reject_cooldown"),
		},
		Wallet: Wallet{
			Mnemonic:   v.GetString("wallet.mnemonic"),
			Passphrase: v.GetString("wallet.passphrase"),
		},
		Scan: Scan{
			BatchSize:           v.GetUint32("scan.batch_size"),
			EmptyBatchThreshold: v.GetInt("scan.empty_batch_threshold"),
			MaxParallelKeysets:  v.GetInt("scan.max_parallel_keysets"),
			CheckSpent:          v.GetBool("scan.check_spent"),
			Keysets:             splitList(v.GetString("scan.keysets")),
		},
		Store: Store{
			Enabled: v.GetBool("store.enabled"),
			Path:    v.GetString("store.path"),
		},
		Backup: Backup{
			SnapshotPath: v.GetString("backup.snapshot_path"),
		},
		Simulator: Simulator{
			ListenAddress: v.GetString("simulator.listen_address"),
			Seed:          v.GetString("simulator.seed"),
			DatabasePath:  v.GetString("simulator.database_path"),
			Unit:          v.GetString("simulator.unit"),
			SignAll:       v.GetBool("simulator.sign_all"),
		},
		Logger: Logger{
			Level:              v.GetString("logger.level"),
			PrettyPrintConsole: v.GetBool("logger.pretty_print_console"),
		},
	}
}

// splitList parses a comma-separated env value. Env vars cannot carry real
// slices, so CASHU_RECOVERY_SCAN_KEYSETS="id1,id2" is the contract.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}

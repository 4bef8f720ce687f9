package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/fundgov/internal/fund"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/logging"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// DefaultProgramID is the program id used when the config names none.
const DefaultProgramID = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"

// Config is the resolved operator configuration.
type Config struct {
	ProgramID    solana.PublicKey
	StorePath    string
	MintDecimals uint8
	QuorumBps    uint16
	Rent         ledger.Rent
	LogLevel     string
}

type fileConfig struct {
	ProgramID    string   `toml:"program_id"`
	StorePath    string   `toml:"store_path"`
	MintDecimals int      `toml:"mint_decimals"`
	QuorumBps    int      `toml:"quorum_bps"`
	LogLevel     string   `toml:"log_level"`
	Rent         fileRent `toml:"rent"`
}

type fileRent struct {
	LamportsPerByteYear int64  `toml:"lamports_per_byte_year"`
	ExemptionThreshold  string `toml:"exemption_threshold"`
	AccountOverhead     int64  `toml:"account_overhead"`
}

func Default() Config {
	return Config{
		ProgramID:    solana.MustPublicKeyFromBase58(DefaultProgramID),
		StorePath:    "fundgov.db",
		MintDecimals: fund.DefaultMintDecimals,
		QuorumBps:    fund.DefaultQuorumBps,
		Rent:         ledger.DefaultRent(),
		LogLevel:     "info",
	}
}

// Load reads path and overlays every defined key on Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("program_id") {
		id, err := solana.PublicKeyFromBase58(strings.TrimSpace(raw.ProgramID))
		if err != nil {
			return Config{}, fmt.Errorf("parse program_id: %w", err)
		}
		cfg.ProgramID = id
	}
	if meta.IsDefined("store_path") {
		cfg.StorePath = strings.TrimSpace(raw.StorePath)
	}
	if meta.IsDefined("mint_decimals") {
		if raw.MintDecimals < 0 || raw.MintDecimals > 255 {
			return Config{}, fmt.Errorf("mint_decimals %d out of range", raw.MintDecimals)
		}
		cfg.MintDecimals = uint8(raw.MintDecimals)
	}
	if meta.IsDefined("quorum_bps") {
		if raw.QuorumBps < 0 || raw.QuorumBps > 10_000 {
			return Config{}, fmt.Errorf("quorum_bps %d out of range", raw.QuorumBps)
		}
		cfg.QuorumBps = uint16(raw.QuorumBps)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("rent", "lamports_per_byte_year") {
		if raw.Rent.LamportsPerByteYear < 0 {
			return Config{}, fmt.Errorf("rent.lamports_per_byte_year must not be negative")
		}
		cfg.Rent.LamportsPerByteYear = uint64(raw.Rent.LamportsPerByteYear)
	}
	if meta.IsDefined("rent", "exemption_threshold") {
		d, err := decimal.NewFromString(strings.TrimSpace(raw.Rent.ExemptionThreshold))
		if err != nil {
			return Config{}, fmt.Errorf("parse rent.exemption_threshold: %w", err)
		}
		cfg.Rent.ExemptionThreshold = d
	}
	if meta.IsDefined("rent", "account_overhead") {
		if raw.Rent.AccountOverhead < 0 {
			return Config{}, fmt.Errorf("rent.account_overhead must not be negative")
		}
		cfg.Rent.AccountOverhead = uint64(raw.Rent.AccountOverhead)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Fund().Validate(); err != nil {
		return err
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path is required")
	}
	if err := c.Rent.Validate(); err != nil {
		return err
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Fund is the processor configuration.
func (c Config) Fund() fund.Config {
	return fund.Config{
		ProgramID:    c.ProgramID,
		MintDecimals: c.MintDecimals,
		QuorumBps:    c.QuorumBps,
	}
}

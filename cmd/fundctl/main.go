package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/config"
	"github.com/danmuck/fundgov/internal/ledger/sqlite"
	"github.com/danmuck/fundgov/internal/logging"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

const usage = `usage: fundctl <command> [flags]

commands:
  derive   compute fund, vault, mint and role addresses
  inspect  decode stored accounts
  config   write or validate a config file
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("fundctl failed")
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	switch args[0] {
	case "derive":
		return runDerive(args[1:], out)
	case "inspect":
		return runInspect(args[1:], out)
	case "config":
		return runConfig(args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// loadConfig reads path when given and falls back to defaults otherwise.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		logging.ConfigureLevel(cfg.LogLevel)
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	logging.ConfigureLevel(cfg.LogLevel)
	return cfg, nil
}

func runDerive(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("derive", flag.ContinueOnError)
	fs.SetOutput(out)
	cfgPath := fs.String("config", "", "config file (defaults apply when empty)")
	program := fs.String("program", "", "program id override")
	name := fs.String("name", "", "fund name")
	members := fs.String("members", "", "comma-separated member keys")
	proposer := fs.String("proposer", "", "proposer key for proposal address")
	voter := fs.String("voter", "", "voter key for vote address (needs -proposer)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	programID := cfg.ProgramID
	if *program != "" {
		if programID, err = solana.PublicKeyFromBase58(*program); err != nil {
			return fmt.Errorf("parse -program: %w", err)
		}
	}
	keys, err := parseKeys(*members)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return errors.New("derive: -members is required")
	}

	d := address.New(programID)
	seed := address.CanonicalFundSeed(keys, *name)
	fund, err := d.Fund(seed)
	if err != nil {
		return err
	}
	vault, err := d.Vault(fund.Address)
	if err != nil {
		return err
	}
	mint, err := d.Mint(fund.Address)
	if err != nil {
		return err
	}
	funding, err := d.Funding()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "program  %s\n", programID)
	fmt.Fprintf(out, "seed     %s\n", hex.EncodeToString(seed[:]))
	printDerived(out, "fund", fund)
	printDerived(out, "vault", vault)
	printDerived(out, "mint", mint)
	printDerived(out, "funding", funding)
	for _, k := range keys {
		m, err := d.Member(fund.Address, k)
		if err != nil {
			return err
		}
		printDerived(out, "member "+k.String(), m)
	}

	if *proposer == "" {
		return nil
	}
	pk, err := solana.PublicKeyFromBase58(*proposer)
	if err != nil {
		return fmt.Errorf("parse -proposer: %w", err)
	}
	proposal, err := d.Proposal(fund.Address, pk)
	if err != nil {
		return err
	}
	printDerived(out, "proposal", proposal)
	if *voter != "" {
		vk, err := solana.PublicKeyFromBase58(*voter)
		if err != nil {
			return fmt.Errorf("parse -voter: %w", err)
		}
		vote, err := d.Vote(proposal.Address, vk)
		if err != nil {
			return err
		}
		printDerived(out, "vote", vote)
	}
	return nil
}

func printDerived(out io.Writer, label string, d address.Derived) {
	fmt.Fprintf(out, "%-8s %s bump=%d\n", label, d.Address, d.Bump)
}

func parseKeys(raw string) ([]solana.PublicKey, error) {
	var out []solana.PublicKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := solana.PublicKeyFromBase58(part)
		if err != nil {
			return nil, fmt.Errorf("parse key %q: %w", part, err)
		}
		out = append(out, k)
	}
	return out, nil
}

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(out)
	cfgPath := fs.String("config", "", "config file (defaults apply when empty)")
	store := fs.String("store", "", "store path override")
	addr := fs.String("address", "", "account to decode; lists program accounts when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	path := cfg.StorePath
	if *store != "" {
		path = *store
	}
	s, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if *addr == "" {
		accounts, err := s.ByOwner(ctx, cfg.ProgramID)
		if err != nil {
			return err
		}
		for _, acc := range accounts {
			fmt.Fprintf(out, "%s %s\n", acc.Address, summarize(acc))
		}
		return nil
	}
	key, err := solana.PublicKeyFromBase58(*addr)
	if err != nil {
		return fmt.Errorf("parse -address: %w", err)
	}
	acc, ok, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %s not found", key)
	}
	return describe(out, acc, cfg.ProgramID)
}

func runConfig(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(out)
	output := fs.String("output", "fundgov.toml", "output path for config template")
	validate := fs.Bool("validate", false, "validate an existing config file")
	input := fs.String("input", "fundgov.toml", "config path for validation")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logging.ConfigureRuntime()

	if *validate {
		if _, err := config.Load(*input); err != nil {
			return err
		}
		log.Info().Str("path", *input).Msg("validated config")
		fmt.Fprintf(out, "ok %s\n", *input)
		return nil
	}
	if err := config.WriteTemplate(*output, *force); err != nil {
		return err
	}
	log.Info().Str("path", *output).Msg("wrote config template")
	fmt.Fprintf(out, "wrote %s\n", *output)
	return nil
}

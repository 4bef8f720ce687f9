package fund

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/observability"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/rs/zerolog"
)

// Processor runs fund commands. It holds no per-command state and is safe to
// share across hosts.
type Processor struct {
	cfg    Config
	derive address.Deriver
	tokens Tokens
	exec   Executor
	log    zerolog.Logger
}

var _ ledger.Program = (*Processor)(nil)

// NewProcessor wires the processor to its collaborators. A nil executor
// accepts every reallocation without moving value.
func NewProcessor(cfg Config, tokens Tokens, exec Executor) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("fund: token service is required")
	}
	p := &Processor{
		cfg:    cfg,
		derive: address.New(cfg.ProgramID),
		tokens: tokens,
		exec:   exec,
		log:    observability.Component("fund"),
	}
	if p.exec == nil {
		p.exec = ExecutorFunc(func(_ context.Context, req ExecutionRequest) error {
			p.log.Info().
				Str("proposal", req.Proposal.String()).
				Int("legs", len(req.Legs)).
				Msg("fund.Execute reallocation accepted without executor")
			return nil
		})
	}
	return p, nil
}

// Deriver exposes the address rules the processor binds accounts against.
func (p *Processor) Deriver() address.Deriver { return p.derive }

// Process decodes the command data and runs it. It implements ledger.Program.
func (p *Processor) Process(ctx context.Context, tx *ledger.Tx) error {
	start := time.Now()
	if !tx.ProgramID().Equals(p.cfg.ProgramID) {
		err := reject("process", KindInvalidInstruction, "command addressed to %s", tx.ProgramID())
		observability.RecordCommand("unknown", string(err.Kind), time.Since(start))
		return err
	}
	ins, err := protocol.Decode(tx.Data())
	if err != nil {
		fe := rejectWith("decode", KindDecode, err, "%d bytes", len(tx.Data()))
		p.log.Warn().Err(err).Int("bytes", len(tx.Data())).Msg("fund.Process decode rejected")
		observability.RecordCommand("unknown", string(fe.Kind), time.Since(start))
		return fe
	}
	return p.run(ctx, tx, ins, start)
}

// Execute runs an already decoded command.
func (p *Processor) Execute(ctx context.Context, tx *ledger.Tx, ins protocol.Instruction) error {
	return p.run(ctx, tx, ins, time.Now())
}

func (p *Processor) run(ctx context.Context, tx *ledger.Tx, ins protocol.Instruction, start time.Time) error {
	op := ins.Opcode().String()
	accounts := accountList{op: op, metas: tx.Accounts()}
	p.log.Debug().Str("opcode", op).Int("accounts", len(accounts.metas)).Msg("fund.Process")

	var err error
	switch cmd := ins.(type) {
	case protocol.CreateFund:
		err = p.createFund(ctx, tx, accounts, cmd)
	case protocol.Deposit:
		err = p.deposit(ctx, tx, accounts, cmd)
	case protocol.CreateProposal:
		err = p.createProposal(ctx, tx, accounts, cmd)
	case protocol.CastVote:
		err = p.castVote(ctx, tx, accounts, cmd)
	case protocol.Execute:
		err = p.execute(ctx, tx, accounts, cmd)
	default:
		err = reject(op, KindInvalidInstruction, "unsupported command %T", ins)
	}

	kind := KindOf(err)
	observability.RecordCommand(op, string(kind), time.Since(start))
	if err != nil {
		p.log.Warn().Err(err).Str("opcode", op).Str("kind", string(kind)).Msg("fund.Process rejected")
		return err
	}
	return nil
}

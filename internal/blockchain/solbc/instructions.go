// internal/blockchain/solbc/instructions.go
package solbc

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/ledger"
)

// MetadataUpdateAuthority is the update authority the Whirlpool program
// assigns to position token metadata.
var MetadataUpdateAuthority = solana.MustPublicKeyFromBase58("3axbTs2z5GBy6usVbNVoqEgZMng3vZvMnAoX29BFfwhr")

const (
	ixOpenPosition     = "open_position_with_token_extensions"
	ixClosePosition    = "close_position_with_token_extensions"
	ixInitializeReward = "initialize_reward_v2"
)

// Discriminator returns the Anchor discriminator of instruction name.
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// Builder builds Whirlpool position-lifecycle instructions.
type Builder struct {
	program solana.PublicKey
}

func NewBuilder(program solana.PublicKey) *Builder {
	return &Builder{program: program}
}

func (b *Builder) Program() solana.PublicKey { return b.program }

type openPositionArgs struct {
	TickLowerIndex             int32
	TickUpperIndex             int32
	WithTokenMetadataExtension bool
}

// OpenPositionParams describes open_position_with_token_extensions.
type OpenPositionParams struct {
	Funder         solana.PublicKey
	Owner          solana.PublicKey
	Whirlpool      solana.PublicKey
	PositionMint   solana.PublicKey
	TickLowerIndex int32
	TickUpperIndex int32
	WithMetadata   bool
}

// OpenPosition returns the instruction and the derived position address.
func (b *Builder) OpenPosition(p OpenPositionParams) (solana.Instruction, solana.PublicKey, error) {
	if p.TickLowerIndex >= p.TickUpperIndex {
		return nil, solana.PublicKey{}, fmt.Errorf("invalid tick range [%d, %d)", p.TickLowerIndex, p.TickUpperIndex)
	}
	derived, err := authority.DerivePosition(b.program, p.PositionMint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	holding, err := ledger.FindAssociatedTokenAddress(p.Owner, p.PositionMint, ledger.Token2022ProgramID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	data, err := encode(ixOpenPosition, openPositionArgs{
		TickLowerIndex:             p.TickLowerIndex,
		TickUpperIndex:             p.TickUpperIndex,
		WithTokenMetadataExtension: p.WithMetadata,
	})
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(p.Funder).WRITE().SIGNER(),
		solana.Meta(p.Owner),
		solana.Meta(derived.Address).WRITE(),
		solana.Meta(p.PositionMint).WRITE().SIGNER(),
		solana.Meta(holding).WRITE(),
		solana.Meta(p.Whirlpool),
		solana.Meta(ledger.Token2022ProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(ledger.AssociatedTokenProgramID),
		solana.Meta(MetadataUpdateAuthority),
	}
	return solana.NewInstruction(b.program, accounts, data), derived.Address, nil
}

// ClosePositionParams describes close_position_with_token_extensions.
type ClosePositionParams struct {
	PositionAuthority solana.PublicKey
	Receiver          solana.PublicKey
	PositionMint      solana.PublicKey
	PositionAccount   solana.PublicKey
}

func (b *Builder) ClosePosition(p ClosePositionParams) (solana.Instruction, error) {
	derived, err := authority.DerivePosition(b.program, p.PositionMint)
	if err != nil {
		return nil, err
	}
	data, err := encode(ixClosePosition, nil)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(p.PositionAuthority).SIGNER(),
		solana.Meta(p.Receiver).WRITE(),
		solana.Meta(derived.Address).WRITE(),
		solana.Meta(p.PositionMint).WRITE(),
		solana.Meta(p.PositionAccount).WRITE(),
		solana.Meta(ledger.Token2022ProgramID),
	}
	return solana.NewInstruction(b.program, accounts, data), nil
}

// InitializeRewardParams describes initialize_reward_v2.
type InitializeRewardParams struct {
	RewardAuthority    solana.PublicKey
	Funder             solana.PublicKey
	Whirlpool          solana.PublicKey
	WhirlpoolsConfig   solana.PublicKey
	RewardMint         solana.PublicKey
	RewardVault        solana.PublicKey
	RewardTokenProgram solana.PublicKey
	RewardIndex        uint8
}

// InitializeReward returns the instruction; the reward vault is a fresh
// keypair that must sign.
func (b *Builder) InitializeReward(p InitializeRewardParams) (solana.Instruction, error) {
	if p.RewardIndex >= 3 {
		return nil, fmt.Errorf("reward index %d out of range", p.RewardIndex)
	}
	if !ledger.IsTokenProgram(p.RewardTokenProgram) {
		return nil, fmt.Errorf("%s is not a token program", p.RewardTokenProgram)
	}
	badge, err := authority.DeriveTokenBadge(b.program, p.WhirlpoolsConfig, p.RewardMint)
	if err != nil {
		return nil, err
	}
	data, err := encode(ixInitializeReward, p.RewardIndex)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(p.RewardAuthority).SIGNER(),
		solana.Meta(p.Funder).WRITE().SIGNER(),
		solana.Meta(p.Whirlpool).WRITE(),
		solana.Meta(p.RewardMint),
		solana.Meta(badge),
		solana.Meta(p.RewardVault).WRITE().SIGNER(),
		solana.Meta(p.RewardTokenProgram),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(b.program, accounts, data), nil
}

// TransferPosition moves the position token from the holder's account to the
// recipient's, creating the recipient account when missing.
func (b *Builder) TransferPosition(payer, holder, recipient, mint solana.PublicKey) ([]solana.Instruction, error) {
	source, err := ledger.FindAssociatedTokenAddress(holder, mint, ledger.Token2022ProgramID)
	if err != nil {
		return nil, err
	}
	destination, err := ledger.FindAssociatedTokenAddress(recipient, mint, ledger.Token2022ProgramID)
	if err != nil {
		return nil, err
	}
	transfer, err := token.NewTransferCheckedInstruction(1, 0, source, mint, destination, holder, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("transfer_checked: %w", err)
	}
	retargeted, err := retarget(transfer, ledger.Token2022ProgramID)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		CreateAssociatedTokenAccountIdempotent(payer, recipient, destination, mint),
		retargeted,
	}, nil
}

// CreateAssociatedTokenAccountIdempotent creates the Token-2022 associated
// account of owner for mint unless it already exists.
func CreateAssociatedTokenAccountIdempotent(payer, owner, account, mint solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		ledger.AssociatedTokenProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(account).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(ledger.Token2022ProgramID),
		},
		[]byte{1},
	)
}

// retarget rebuilds an SPL Token instruction for another token program; the
// base instruction layouts are shared.
func retarget(ix solana.Instruction, program solana.PublicKey) (solana.Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(program, ix.Accounts(), data), nil
}

func encode(name string, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	disc := Discriminator(name)
	buf.Write(disc[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("encode %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// internal/ledger/layout.go
package ledger

import (
	"fmt"
	"slices"
)

const (
	// MintBaseSize is the packed size of a mint without extensions.
	MintBaseSize = 82
	// AccountBaseSize is the packed size of a token account without extensions.
	AccountBaseSize = 165

	multisigSize      = 355
	accountTypeSize   = 1
	tlvHeaderSize     = 4
	extensionTypeSize = 2
)

// ExtensionType identifies a Token-2022 extension.
type ExtensionType uint16

const (
	ExtensionUninitialized         ExtensionType = 0
	ExtensionTransferFeeConfig     ExtensionType = 1
	ExtensionTransferFeeAmount     ExtensionType = 2
	ExtensionMintCloseAuthority    ExtensionType = 3
	ExtensionDefaultAccountState   ExtensionType = 6
	ExtensionImmutableOwner        ExtensionType = 7
	ExtensionNonTransferable       ExtensionType = 9
	ExtensionInterestBearingConfig ExtensionType = 10
	ExtensionPermanentDelegate     ExtensionType = 12
	ExtensionTransferHook          ExtensionType = 14
	ExtensionMetadataPointer       ExtensionType = 18
	ExtensionTokenMetadata         ExtensionType = 19
)

var extensionNames = map[ExtensionType]string{
	ExtensionTransferFeeConfig:     "TransferFeeConfig",
	ExtensionTransferFeeAmount:     "TransferFeeAmount",
	ExtensionMintCloseAuthority:    "MintCloseAuthority",
	ExtensionDefaultAccountState:   "DefaultAccountState",
	ExtensionImmutableOwner:        "ImmutableOwner",
	ExtensionNonTransferable:       "NonTransferable",
	ExtensionInterestBearingConfig: "InterestBearingConfig",
	ExtensionPermanentDelegate:     "PermanentDelegate",
	ExtensionTransferHook:          "TransferHook",
	ExtensionMetadataPointer:       "MetadataPointer",
	ExtensionTokenMetadata:         "TokenMetadata",
}

func (e ExtensionType) String() string {
	if name, ok := extensionNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Extension(%d)", uint16(e))
}

// fixed data lengths of mint-side extensions
var mintExtensionLen = map[ExtensionType]uint64{
	ExtensionTransferFeeConfig:     108,
	ExtensionMintCloseAuthority:    32,
	ExtensionDefaultAccountState:   1,
	ExtensionNonTransferable:       0,
	ExtensionInterestBearingConfig: 52,
	ExtensionPermanentDelegate:     32,
	ExtensionTransferHook:          64,
	ExtensionMetadataPointer:       64,
}

// fixed data lengths of account-side extensions
var accountExtensionLen = map[ExtensionType]uint64{
	ExtensionTransferFeeAmount: 8,
	ExtensionImmutableOwner:    0,
}

func calculateLen(base uint64, lengths map[ExtensionType]uint64, exts []ExtensionType) (uint64, error) {
	if len(exts) == 0 {
		return base, nil
	}
	size := uint64(AccountBaseSize + accountTypeSize)
	seen := make(map[ExtensionType]struct{}, len(exts))
	for _, ext := range exts {
		if ext == ExtensionTokenMetadata {
			return 0, ErrVariableLengthExtension
		}
		n, ok := lengths[ext]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrInvalidExtensionCombination, ext)
		}
		if _, dup := seen[ext]; dup {
			return 0, fmt.Errorf("%w: duplicate %s", ErrInvalidExtensionCombination, ext)
		}
		seen[ext] = struct{}{}
		size += tlvHeaderSize + n
	}
	// a Multisig-sized account would be ambiguous
	if size == multisigSize {
		size += extensionTypeSize
	}
	return size, nil
}

// MintLayoutBuilder accumulates mint extension requests. Once sealed it
// refuses further extensions: the extension set of a mint is fixed at
// allocation.
type MintLayoutBuilder struct {
	extensions []ExtensionType
	sealed     bool
	err        error
}

// NewMintLayout starts an empty mint layout.
func NewMintLayout() *MintLayoutBuilder {
	return &MintLayoutBuilder{}
}

// With requests an extension.
func (b *MintLayoutBuilder) With(ext ExtensionType) *MintLayoutBuilder {
	if b.sealed {
		b.err = ErrLayoutSealed
		return b
	}
	b.extensions = append(b.extensions, ext)
	return b
}

// Seal computes the account size once and freezes the extension set.
func (b *MintLayoutBuilder) Seal() (MintLayout, error) {
	if b.err != nil {
		return MintLayout{}, b.err
	}
	if b.sealed {
		return MintLayout{}, ErrLayoutSealed
	}
	size, err := calculateLen(MintBaseSize, mintExtensionLen, b.extensions)
	if err != nil {
		return MintLayout{}, err
	}
	b.sealed = true
	return MintLayout{extensions: slices.Clone(b.extensions), size: size}, nil
}

// MintLayout is a sealed, immutable mint extension set.
type MintLayout struct {
	extensions []ExtensionType
	size       uint64
}

// Size is the account size to allocate.
func (l MintLayout) Size() uint64 { return l.size }

// Extensions returns the extension set in request order.
func (l MintLayout) Extensions() []ExtensionType { return slices.Clone(l.extensions) }

// Has reports whether ext is part of the layout.
func (l MintLayout) Has(ext ExtensionType) bool { return slices.Contains(l.extensions, ext) }

// MintSize computes the size of a mint holding exts.
func MintSize(exts ...ExtensionType) (uint64, error) {
	return calculateLen(MintBaseSize, mintExtensionLen, exts)
}

// AccountSize computes the size of a token account holding exts.
func AccountSize(exts ...ExtensionType) (uint64, error) {
	return calculateLen(AccountBaseSize, accountExtensionLen, exts)
}

// TokenMetadataSize is the TLV entry size of self-hosted token metadata:
// update authority, mint, three borsh strings and an empty additional-metadata vec.
func TokenMetadataSize(name, symbol, uri string) uint64 {
	return tlvHeaderSize + 32 + 32 +
		4 + uint64(len(name)) +
		4 + uint64(len(symbol)) +
		4 + uint64(len(uri)) +
		4
}

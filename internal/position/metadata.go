// internal/position/metadata.go
package position

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/whirlpool-positions/internal/authority"
	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

// MaxURILength is the exclusive upper bound of a metadata URI in bytes.
const MaxURILength = 128

// MetadataConfig is the naming convention of position token metadata.
type MetadataConfig struct {
	NamePrefix      string
	Symbol          string
	URIBase         string
	UpdateAuthority authority.Authority
}

// DefaultMetadataConfig returns the Whirlpool position token convention.
func DefaultMetadataConfig() MetadataConfig {
	return MetadataConfig{
		NamePrefix: "OWP",
		Symbol:     "OWP",
		URIBase:    "https://position-nft.orca.so/meta",
	}
}

// Metadata is the descriptive metadata of one position token.
type Metadata struct {
	Name   string
	Symbol string
	URI    string
}

// BuildMetadata renders the metadata of a position token:
//
//	name: "<prefix> xxxx...yyyy" with the first and last 4 chars of the mint
//	uri:  "<base>/<whirlpool>/<position>"
func BuildMetadata(cfg MetadataConfig, whirlpool, position, mint solana.PublicKey) (Metadata, error) {
	addr := mint.String()
	md := Metadata{
		Name:   fmt.Sprintf("%s %s...%s", cfg.NamePrefix, addr[:4], addr[len(addr)-4:]),
		Symbol: cfg.Symbol,
		URI:    fmt.Sprintf("%s/%s/%s", cfg.URIBase, whirlpool, position),
	}
	if len(md.URI) >= MaxURILength {
		return Metadata{}, domain.Fail("build_metadata", domain.ErrMetadataTooLong,
			fmt.Errorf("uri is %d bytes", len(md.URI)))
	}
	return md, nil
}

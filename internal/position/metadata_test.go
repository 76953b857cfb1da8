package position

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

func TestBuildMetadata(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	whirlpool := solana.NewWallet().PublicKey()
	position := solana.NewWallet().PublicKey()

	md, err := BuildMetadata(DefaultMetadataConfig(), whirlpool, position, mint)
	require.NoError(t, err)

	addr := mint.String()
	assert.Equal(t, "OWP "+addr[:4]+"..."+addr[len(addr)-4:], md.Name)
	assert.Equal(t, "OWP", md.Symbol)
	assert.Equal(t, "https://position-nft.orca.so/meta/"+whirlpool.String()+"/"+position.String(), md.URI)
	assert.Less(t, len(md.URI), MaxURILength)
}

func TestBuildMetadataNameUsesAddressEnds(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	md, err := BuildMetadata(MetadataConfig{NamePrefix: "P", Symbol: "S", URIBase: "u"}, mint, mint, mint)
	require.NoError(t, err)

	addr := mint.String()
	assert.True(t, strings.HasPrefix(md.Name, "P "+addr[:4]+"..."))
	assert.True(t, strings.HasSuffix(md.Name, addr[len(addr)-4:]))
	assert.Len(t, md.Name, len("P ")+4+3+4)
}

func TestBuildMetadataRejectsLongURI(t *testing.T) {
	cfg := DefaultMetadataConfig()
	cfg.URIBase = "https://" + strings.Repeat("x", 60) + ".example"
	key := solana.NewWallet().PublicKey()

	_, err := BuildMetadata(cfg, key, key, key)
	assert.ErrorIs(t, err, domain.ErrMetadataTooLong)
}

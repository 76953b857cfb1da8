// internal/blockchain/solbc/transaction/error_analyzer_test.go
package transaction

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseAnchorErrorLog(t *testing.T) {
	got := parseAnchorErrorLog("Program log: AnchorError occurred. Error Code: InvalidRewardIndex. Error Number: 6021. Error Message: Invalid reward index.")
	assert.Equal(t, AnchorError{Code: 6021, Name: "InvalidRewardIndex", Msg: "Invalid reward index"}, got)
}

func TestAnalyze(t *testing.T) {
	ea := NewErrorAnalyzer(zap.NewNop())

	assert.Equal(t, "none", ea.Analyze(nil).Type)

	generic := ea.Analyze(errors.New("dial tcp: refused"))
	assert.Equal(t, "generic_error", generic.Type)
	assert.False(t, generic.Retryable())

	wrapped := fmt.Errorf("send: %w", &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 0",
		Data: map[string]interface{}{
			"logs": []interface{}{"Program log: AnchorError occurred. Error Code: RewardVaultAmountInsufficient. Error Number: 6036. Error Message: Reward vault amount insufficient."},
			"err":  map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
		},
	})
	a := ea.Analyze(wrapped)
	assert.Equal(t, "rpc_error", a.Type)
	assert.True(t, a.SimulationFailed)
	require.NotNil(t, a.Anchor)
	assert.Equal(t, 6036, a.Anchor.Code)
	assert.NotNil(t, a.InstructionError)
	assert.False(t, a.Retryable())
	assert.Contains(t, a.Format(), "RewardVaultAmountInsufficient")

	expired := ea.Analyze(&jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"})
	assert.True(t, expired.Retryable())
}

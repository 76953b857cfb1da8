// internal/blockchain/solbc/transaction/error_analyzer.go
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

var ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

// TransactionError is an on-chain failure of a landed transaction.
type TransactionError struct {
	Signature solana.Signature
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Analysis is the structured view of a submission failure.
type Analysis struct {
	Type             string       `json:"type"`
	Code             int          `json:"code,omitempty"`
	Message          string       `json:"message"`
	SimulationFailed bool         `json:"simulation_failed,omitempty"`
	Logs             []string     `json:"logs,omitempty"`
	Anchor           *AnchorError `json:"anchor_error,omitempty"`
	InstructionError interface{}  `json:"instruction_error,omitempty"`
}

// Retryable reports whether resubmitting with a fresh blockhash may succeed.
func (a Analysis) Retryable() bool {
	if a.Anchor != nil {
		return false
	}
	return strings.Contains(a.Message, "Blockhash not found") ||
		strings.Contains(a.Message, "BlockhashNotFound") ||
		strings.Contains(a.Message, "block height exceeded")
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// Analyze extracts the RPC code, simulation logs and any Anchor error from err.
func (ea *ErrorAnalyzer) Analyze(err error) Analysis {
	if err == nil {
		return Analysis{Type: "none"}
	}

	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return Analysis{Type: "transaction_error", Message: err.Error(), InstructionError: txErr.Err}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return Analysis{Type: "generic_error", Message: err.Error()}
	}

	result := Analysis{
		Type:    "rpc_error",
		Code:    rpcErr.Code,
		Message: rpcErr.Message,
	}

	if !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return result
	}
	result.SimulationFailed = true

	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return result
	}
	if logs, ok := dataMap["logs"].([]interface{}); ok {
		for _, logEntry := range logs {
			logStr, ok := logEntry.(string)
			if !ok {
				continue
			}
			result.Logs = append(result.Logs, logStr)
			if strings.Contains(logStr, "AnchorError") {
				anchorErr := parseAnchorErrorLog(logStr)
				result.Anchor = &anchorErr
				ea.logger.Warn("Anchor error detected",
					zap.Int("code", anchorErr.Code),
					zap.String("name", anchorErr.Name),
					zap.String("message", anchorErr.Msg))
			}
		}
	}
	if instrErr, ok := dataMap["err"]; ok {
		result.InstructionError = instrErr
	}
	return result
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InvalidRewardIndex. Error Number: 6021. Error Message: Invalid reward index."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(logStr, "Error Number:", 2); len(parts) == 2 {
		numParts := strings.Split(parts[1], ".")
		fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
	}

	if parts := strings.SplitN(logStr, "Error Code:", 2); len(parts) == 2 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	if parts := strings.SplitN(logStr, "Error Message:", 2); len(parts) == 2 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}

	return result
}

// Format renders the analysis for logging or display.
func (a Analysis) Format() string {
	jsonBytes, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting analysis: %v", err)
	}
	return string(jsonBytes)
}

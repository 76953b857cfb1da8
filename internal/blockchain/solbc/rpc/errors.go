// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"errors"
	"fmt"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	ErrNoRPCNodes = errors.New("no RPC nodes available")
	ErrTimeout    = errors.New("request timeout")
)

// Error is an RPC failure annotated with the node and method.
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}

// IsNodeResponse reports whether err is an answer from a node (a JSON-RPC
// error or a missing account) rather than a transport failure. Answers are
// not retried on another node.
func IsNodeResponse(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr) || errors.Is(err, solanarpc.ErrNotFound)
}

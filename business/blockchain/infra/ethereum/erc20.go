package ethereum

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/blockchain/app"
	"github.com/fd1az/swap-router/internal/apperror"
)

const erc20ABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// ERC20Reader reads token metadata through a ContractCaller.
type ERC20Reader struct {
	caller app.ContractCaller
	abi    abi.ABI
}

var _ app.TokenReader = (*ERC20Reader)(nil)

// NewERC20Reader parses the ERC-20 ABI once.
func NewERC20Reader(caller app.ContractCaller) (*ERC20Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, apperror.New(apperror.CodeABIDecodingFailed,
			apperror.WithCause(err),
			apperror.WithContext("parse erc20 abi"))
	}
	return &ERC20Reader{caller: caller, abi: parsed}, nil
}

// Decimals calls decimals() on token.
func (r *ERC20Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	data, err := r.abi.Pack("decimals")
	if err != nil {
		return 0, apperror.New(apperror.CodeABIEncodingFailed, apperror.WithCause(err))
	}

	out, err := r.caller.CallContract(ctx, token, data)
	if err != nil {
		return 0, err
	}

	res, err := r.abi.Unpack("decimals", out)
	if err != nil || len(res) == 0 {
		return 0, apperror.New(apperror.CodeABIDecodingFailed,
			apperror.WithCause(err),
			apperror.WithContextf("decimals() from %s", token.Hex()))
	}

	d, ok := res[0].(uint8)
	if !ok {
		return 0, apperror.New(apperror.CodeABIDecodingFailed,
			apperror.WithContextf("decimals() from %s: unexpected type %T", token.Hex(), res[0]))
	}
	return d, nil
}

package models

import (
	"math/big"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
)

var weiPerEth = decimal.New(1, 18)

// ParseEth parses a decimal ETH amount from its string form
func ParseEth(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, xerrors.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// EthToWei converts a decimal ETH amount to integer wei, truncating below 1 wei
func EthToWei(d decimal.Decimal) *big.Int {
	return d.Mul(weiPerEth).BigInt()
}

// WeiToEth converts integer wei to a decimal ETH amount
func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, 0).Div(weiPerEth)
}

package gateway

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// AccountProvider supplies the signing account for state-changing calls.
// It decouples key management from the workflow logic.
type AccountProvider interface {
	Address() common.Address
	Transactor(chainID *big.Int) (*bind.TransactOpts, error)
}

// PrivateKeyAccount is an AccountProvider backed by a raw ECDSA private key.
type PrivateKeyAccount struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeyAccount parses a hex-encoded private key (with or without
// the 0x prefix) and derives the account address from it.
func NewPrivateKeyAccount(privateKeyHex string) (*PrivateKeyAccount, error) {
	key := privateKeyHex
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}
	key = strings.TrimSpace(key)

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}

	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("error casting public key to ECDSA")
	}

	return &PrivateKeyAccount{
		key:     privateKey,
		address: crypto.PubkeyToAddress(*pub),
	}, nil
}

// Address returns the account address.
func (a *PrivateKeyAccount) Address() common.Address {
	return a.address
}

// Transactor builds signing options bound to the given chain.
func (a *PrivateKeyAccount) Transactor(chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(a.key, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "create transactor")
	}
	return opts, nil
}

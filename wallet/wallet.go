package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"golang.org/x/crypto/sha3"
)

// tronAddressPrefix is the version byte of TRON mainnet base58check addresses.
const tronAddressPrefix = 0x41

// Common BIP44 depths for exported extended keys. Wallets export either the
// account level (m/44'/195'/0'), the change level (m/44'/195'/0'/0) or, in
// degenerate cases, a single address level key.
const (
	depthAccount = 3
	depthChange  = 4
	depthAddress = 5
)

var (
	ErrPrivateKey      = errors.New("wallet: extended key contains private material, refusing to use it")
	ErrUnusableDepth   = errors.New("wallet: unsupported extended key depth")
	ErrAddressLevelKey = errors.New("wallet: address-level key can only derive index 0")
)

// Allocator derives receiving addresses from a single published extended
// public key. It never holds private key material: a compromised server can
// watch deposits but cannot spend them.
type Allocator struct {
	// changeKey is normalized to the external chain level so that child i is
	// the address at m/.../0/i.
	changeKey *hdkeychain.ExtendedKey

	// addressLevel is set when the configured key already is a single
	// address-level key. Only index 0 is derivable then.
	addressLevel bool
}

// NewAllocator parses and normalizes the configured extended public key.
// A malformed or private key is a configuration error: callers are expected
// to fail startup on it rather than defer the problem to order creation.
func NewAllocator(xpub string) (*Allocator, error) {
	key, err := hdkeychain.NewKeyFromString(xpub)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid extended key: %w", err)
	}
	if key.IsPrivate() {
		return nil, ErrPrivateKey
	}

	switch key.Depth() {
	case depthAccount:
		// account-level: step down to the external chain (change 0)
		changeKey, err := key.Derive(0)
		if err != nil {
			return nil, fmt.Errorf("wallet: deriving external chain: %w", err)
		}
		return &Allocator{changeKey: changeKey}, nil
	case depthChange:
		return &Allocator{changeKey: key}, nil
	case depthAddress:
		return &Allocator{changeKey: key, addressLevel: true}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnusableDepth, key.Depth())
	}
}

// Derive computes the TRC20 receiving address for the given index.
// Derivation is deterministic: the same index always yields the same
// address, so the full address set can be rebuilt from stored indices.
func (a *Allocator) Derive(index uint32) (string, error) {
	key := a.changeKey
	if a.addressLevel {
		if index != 0 {
			return "", ErrAddressLevelKey
		}
	} else {
		child, err := a.changeKey.Derive(index)
		if err != nil {
			return "", fmt.Errorf("wallet: deriving index %d: %w", index, err)
		}
		key = child
	}

	pubKey, err := key.ECPubKey()
	if err != nil {
		return "", fmt.Errorf("wallet: extracting public key for index %d: %w", index, err)
	}

	// TRON address: keccak256 over the uncompressed public key without the
	// 0x04 marker, last 20 bytes, 0x41 prefix, base58check.
	raw := pubKey.SerializeUncompressed()
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(raw[1:])
	digest := hasher.Sum(nil)

	return base58.CheckEncode(digest[len(digest)-20:], tronAddressPrefix), nil
}

// ValidAddress reports whether addr is a well-formed TRON mainnet address.
func ValidAddress(addr string) bool {
	payload, version, err := base58.CheckDecode(addr)
	return err == nil && version == tronAddressPrefix && len(payload) == 20
}

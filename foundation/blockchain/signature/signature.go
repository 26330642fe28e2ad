// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
var ZeroHash chainhash.Hash

// Set of errors returned by Verify.
var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid DER signature")
	ErrVerifyFailed     = errors.New("signature verification failed")
)

// =============================================================================

// Sha256 returns the single SHA-256 digest of the data.
func Sha256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// DoubleHash returns SHA-256 applied twice to the data. This is the hash
// behind transaction ids, merkle nodes and block hashes.
func DoubleHash(data []byte) []byte {
	return chainhash.DoubleHashB(data)
}

// Hash160 returns RIPEMD-160 of the SHA-256 of the data.
func Hash160(data []byte) []byte {
	return btcutil.Hash160(data)
}

// SplitSigHashType separates the trailing sighash type byte from a script
// signature and returns the DER portion.
func SplitSigHashType(sig []byte) (der []byte, hashType uint32, err error) {
	if len(sig) == 0 {
		return nil, 0, fmt.Errorf("%w: empty signature", ErrInvalidSignature)
	}

	return sig[:len(sig)-1], uint32(sig[len(sig)-1]), nil
}

// Verify checks the DER encoded signature against the 32 byte digest and the
// serialized public key. The signature is normalized to its low-S form before
// the ECDSA check since the verifier only accepts canonical signatures.
func Verify(digest []byte, pubKey []byte, der []byte) error {
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}

	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	// Convert the signature into the [R|S] format with S forced into the
	// lower half of the curve order.
	r, s := sig.R(), sig.S()
	if s.IsOverHalfOrder() {
		s.Negate()
	}

	rs := make([]byte, 64)
	r.PutBytesUnchecked(rs[:32])
	s.PutBytesUnchecked(rs[32:])

	if !crypto.VerifySignature(pk.SerializeCompressed(), digest, rs) {
		return ErrVerifyFailed
	}

	return nil
}

// Sign uses the specified private key to sign the digest and returns the
// DER encoded signature without a sighash type byte.
func Sign(digest []byte, privateKey *btcec.PrivateKey) []byte {
	return ecdsa.Sign(privateKey, digest).Serialize()
}

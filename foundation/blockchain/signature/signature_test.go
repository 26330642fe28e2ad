package signature_test

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	pkBytes, err := hex.DecodeString(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}
	pk, _ := btcec.PrivKeyFromBytes(pkBytes)

	digest := signature.DoubleHash([]byte("Bill"))
	der := signature.Sign(digest, pk)

	if err := signature.Verify(digest, pk.PubKey().SerializeCompressed(), der); err != nil {
		t.Fatalf("Should be able to verify the signature with a compressed key: %s", err)
	}

	if err := signature.Verify(digest, pk.PubKey().SerializeUncompressed(), der); err != nil {
		t.Fatalf("Should be able to verify the signature with an uncompressed key: %s", err)
	}

	other := signature.DoubleHash([]byte("Jill"))
	if err := signature.Verify(other, pk.PubKey().SerializeCompressed(), der); !errors.Is(err, signature.ErrVerifyFailed) {
		t.Fatalf("Should fail to verify a signature over different data: %v", err)
	}
}

func Test_HighS(t *testing.T) {
	pkBytes, err := hex.DecodeString(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}
	pk, _ := btcec.PrivKeyFromBytes(pkBytes)

	digest := signature.DoubleHash([]byte("malleable"))
	der := signature.Sign(digest, pk)

	// Rebuild the signature with S replaced by N-S. The low-S normalization
	// must map it back onto the original signature.
	high := highS(t, der)

	if err := signature.Verify(digest, pk.PubKey().SerializeCompressed(), high); err != nil {
		t.Fatalf("Should be able to verify a high-S signature after normalization: %s", err)
	}
}

func Test_BadInputs(t *testing.T) {
	digest := signature.DoubleHash([]byte("Bill"))

	if err := signature.Verify(digest, []byte{0x02, 0x01}, []byte{0x30}); !errors.Is(err, signature.ErrInvalidPublicKey) {
		t.Fatalf("Should reject a malformed public key: %v", err)
	}

	pkBytes, _ := hex.DecodeString(pkHexKey)
	pk, _ := btcec.PrivKeyFromBytes(pkBytes)
	if err := signature.Verify(digest, pk.PubKey().SerializeCompressed(), []byte{0x30, 0x01}); !errors.Is(err, signature.ErrInvalidSignature) {
		t.Fatalf("Should reject a malformed DER signature: %v", err)
	}

	if _, _, err := signature.SplitSigHashType(nil); !errors.Is(err, signature.ErrInvalidSignature) {
		t.Fatalf("Should reject an empty script signature: %v", err)
	}
}

func Test_Hash(t *testing.T) {
	// Genesis block coinbase transaction.
	raw := "01000000010000000000000000000000000000000000000000000000000000000000000000ffffffff4d04ffff001d0104455468652054696d65732030332f4a616e2f32303039204368616e63656c6c6f72206f6e206272696e6b206f66207365636f6e64206261696c6f757420666f722062616e6b73ffffffff0100f2052a01000000434104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac00000000"
	exp := "3ba3edfd7a7b12b27ac72c3e67768f617fc81bc3888a51323a9fb8aa4b1e5e4a"

	data, err := hex.DecodeString(raw)
	if err != nil {
		t.Fatalf("Should be able to decode the raw transaction: %s", err)
	}

	h := signature.DoubleHash(data)
	if got := hex.EncodeToString(h); got != exp {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get back the right hash.")
	}

	h2 := signature.DoubleHash(data)
	if hex.EncodeToString(h2) != exp {
		t.Fatalf("Should get back the same hash twice.")
	}

	// Hash160 of the empty string.
	if got := hex.EncodeToString(signature.Hash160(nil)); got != "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb" {
		t.Logf("got: %s", got)
		t.Fatalf("Should get back the right hash160.")
	}
}

// =============================================================================

// highS rewrites a canonical DER signature so S is replaced by N-S.
func highS(t *testing.T, der []byte) []byte {
	t.Helper()

	n, _ := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")

	rLen := int(der[3])
	r := der[4 : 4+rLen]
	s := der[4+rLen+2:]

	// Compute N-S over big-endian byte slices.
	sPadded := make([]byte, 32)
	copy(sPadded[32-len(trimZero(s)):], trimZero(s))
	out := make([]byte, 32)
	var borrow int
	for i := 31; i >= 0; i-- {
		v := int(n[i]) - int(sPadded[i]) - borrow
		borrow = 0
		if v < 0 {
			v += 256
			borrow = 1
		}
		out[i] = byte(v)
	}

	hs := trimZero(out)
	if hs[0]&0x80 != 0 {
		hs = append([]byte{0x00}, hs...)
	}

	sig := []byte{0x30, byte(4 + len(r) + len(hs)), 0x02, byte(len(r))}
	sig = append(sig, r...)
	sig = append(sig, 0x02, byte(len(hs)))
	sig = append(sig, hs...)

	return sig
}

func trimZero(b []byte) []byte {
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	return b
}

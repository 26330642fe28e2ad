// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"bytes"
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/merkle"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// TxID is a transaction id stored in natural byte order.
type TxID chainhash.Hash

// Hash returns the id itself, transaction ids are already hashes.
func (id TxID) Hash() ([]byte, error) {
	return id[:], nil
}

// Equals tests for equality of two ids.
func (id TxID) Equals(other TxID) bool {
	return id == other
}

func mustTxID(t *testing.T, display string) TxID {
	t.Helper()

	h, err := chainhash.NewHashFromStr(display)
	if err != nil {
		t.Fatalf("Should be able to parse the txid %s: %s", display, err)
	}

	return TxID(*h)
}

// =============================================================================

func Test_MerkleRoot(t *testing.T) {
	type table struct {
		name  string
		txids []string
		root  string
	}

	tt := []table{
		{
			name:  "block1",
			txids: []string{"0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098"},
			root:  "0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098",
		},
		{
			name: "block100000",
			txids: []string{
				"8c14f0db3df150123e6f3dbbf30f8b955a8249b62ac1d1ff16284aefa3d06d87",
				"fff2525b8931402dd09222c50775608f75787bd2b87e56995a7bdd30f79702c4",
				"6359f0868171b1d194cbee1af2f16ea598ae8fad666d9b012c8ed2b79a236ec4",
				"e9a66845e05d5abc0ad04ec80f774a7e585c6e8db975962d069a522137b80c1d",
			},
			root: "f3e94742aca4b5ef85488dc37c06c3282295ffec960994b2c0d5ac2a25a95766",
		},
	}

	t.Log("Given the need to compute block merkle roots.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				values := make([]TxID, len(tst.txids))
				for i, id := range tst.txids {
					values[i] = mustTxID(t, id)
				}

				tree, err := merkle.NewTree(values)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to create the tree: %s", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to create the tree.", success, testID)

				if tree.RootHex() != tst.root {
					t.Logf("\t\tTest %d:\tgot: %s", testID, tree.RootHex())
					t.Logf("\t\tTest %d:\texp: %s", testID, tst.root)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right merkle root.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right merkle root.", success, testID)

				if err := tree.Verify(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to verify the tree: %s", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to verify the tree.", success, testID)
			}
		}
	}
}

func Test_OddLevels(t *testing.T) {
	a := TxID(chainhash.DoubleHashH([]byte("a")))
	b := TxID(chainhash.DoubleHashH([]byte("b")))
	c := TxID(chainhash.DoubleHashH([]byte("c")))

	ab := merkle.DoubleSHA256(a[:], b[:])
	cc := merkle.DoubleSHA256(c[:], c[:])
	exp := merkle.DoubleSHA256(ab, cc)

	tree, err := merkle.NewTree([]TxID{a, b, c})
	if err != nil {
		t.Fatalf("Should be able to create the tree: %s", err)
	}

	if !bytes.Equal(tree.MerkleRoot, exp) {
		t.Logf("got: %x", tree.MerkleRoot)
		t.Logf("exp: %x", exp)
		t.Fatalf("Should duplicate the odd node at the end of a level.")
	}

	if got := len(tree.Values()); got != 3 {
		t.Fatalf("Should get back the original values, got %d.", got)
	}
}

func Test_Proof(t *testing.T) {
	var values []TxID
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		values = append(values, TxID(chainhash.DoubleHashH([]byte(s))))
	}

	tree, err := merkle.NewTree(values)
	if err != nil {
		t.Fatalf("Should be able to create the tree: %s", err)
	}

	for i, v := range values {
		proof, order, err := tree.Proof(v)
		if err != nil {
			t.Fatalf("Should be able to produce a proof for value %d: %s", i, err)
		}

		if err := tree.VerifyProof(v, proof, order); err != nil {
			t.Fatalf("Should be able to verify the proof for value %d: %s", i, err)
		}
	}

	missing := TxID(chainhash.DoubleHashH([]byte("z")))
	if _, _, err := tree.Proof(missing); err == nil {
		t.Fatalf("Should not produce a proof for a missing value.")
	}

	tree.MerkleRoot = []byte{1}
	if err := tree.Verify(); err == nil {
		t.Fatalf("Should detect a tampered root.")
	}
}

func Test_Rebuild(t *testing.T) {
	values := []TxID{
		TxID(chainhash.DoubleHashH([]byte("a"))),
		TxID(chainhash.DoubleHashH([]byte("b"))),
	}

	tree, err := merkle.NewTree(values)
	if err != nil {
		t.Fatalf("Should be able to create the tree: %s", err)
	}
	root := tree.MerkleRoot

	if err := tree.Rebuild(); err != nil {
		t.Fatalf("Should be able to rebuild the tree: %s", err)
	}

	if !bytes.Equal(root, tree.MerkleRoot) {
		t.Fatalf("Should get the same root after a rebuild.")
	}

	if _, err := merkle.NewTree([]TxID{}); err == nil {
		t.Fatalf("Should not be able to build a tree without values.")
	}
}

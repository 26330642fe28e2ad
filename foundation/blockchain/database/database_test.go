package database_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// genesisCoinbase is the coinbase transaction of the bitcoin genesis block.
const genesisCoinbase = "01000000010000000000000000000000000000000000000000000000000000000000000000ffffffff4d04ffff001d0104455468652054696d65732030332f4a616e2f32303039204368616e63656c6c6f72206f6e206272696e6b206f66207365636f6e64206261696c6f757420666f722062616e6b73ffffffff0100f2052a01000000434104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac00000000"

// =============================================================================

func Test_VarInt(t *testing.T) {
	type table struct {
		n   uint64
		exp string
	}

	tt := []table{
		{n: 0, exp: "00"},
		{n: 252, exp: "fc"},
		{n: 253, exp: "fdfd00"},
		{n: 0xffff, exp: "fdffff"},
		{n: 0x10000, exp: "fe00000100"},
		{n: 0xffffffff, exp: "feffffffff"},
		{n: 0x100000000, exp: "ff0000000001000000"},
	}

	t.Log("Given the need to encode CompactSize integers.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %d.", testID, tst.n)
			{
				got := hex.EncodeToString(database.VarInt(tst.n))
				if got != tst.exp {
					t.Logf("\t\tTest %d:\tgot: %s", testID, got)
					t.Logf("\t\tTest %d:\texp: %s", testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right encoding.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right encoding.", success, testID)
			}
		}
	}
}

func Test_TxIDs(t *testing.T) {
	type table struct {
		name string
		msg  *wire.MsgTx
	}

	tt := []table{
		{name: "legacy", msg: legacyMsgTx()},
		{name: "segwit", msg: segwitMsgTx()},
		{name: "genesis", msg: decodeMsgTx(t, genesisCoinbase)},
	}

	t.Log("Given the need to compute transaction ids and weight.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
			{
				tx := fromMsgTx(tst.msg)

				var buf bytes.Buffer
				if err := tst.msg.Serialize(&buf); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to serialize with wire: %s", failed, testID, err)
				}

				if !bytes.Equal(buf.Bytes(), tx.Serialize()) {
					t.Logf("\t\tTest %d:\tgot: %x", testID, tx.Serialize())
					t.Logf("\t\tTest %d:\texp: %x", testID, buf.Bytes())
					t.Fatalf("\t%s\tTest %d:\tShould serialize the same bytes as wire.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould serialize the same bytes as wire.", success, testID)

				txID, wtxID := tx.ComputeIDs()
				if txID != tst.msg.TxHash() {
					t.Logf("\t\tTest %d:\tgot: %s", testID, txID)
					t.Logf("\t\tTest %d:\texp: %s", testID, tst.msg.TxHash())
					t.Fatalf("\t%s\tTest %d:\tShould get back the right txid.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right txid.", success, testID)

				if wtxID != tst.msg.WitnessHash() {
					t.Logf("\t\tTest %d:\tgot: %s", testID, wtxID)
					t.Logf("\t\tTest %d:\texp: %s", testID, tst.msg.WitnessHash())
					t.Fatalf("\t%s\tTest %d:\tShould get back the right wtxid.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right wtxid.", success, testID)

				again, _ := tx.ComputeIDs()
				if again != txID {
					t.Fatalf("\t%s\tTest %d:\tShould get back the same txid twice.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the same txid twice.", success, testID)

				exp := uint64(tst.msg.SerializeSizeStripped()*3 + tst.msg.SerializeSize())
				if got := tx.Weight(); got != exp {
					t.Logf("\t\tTest %d:\tgot: %d", testID, got)
					t.Logf("\t\tTest %d:\texp: %d", testID, exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right weight.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right weight.", success, testID)
			}
		}
	}
}

func Test_GenesisIDs(t *testing.T) {
	tx := fromMsgTx(decodeMsgTx(t, genesisCoinbase))

	txID, _ := tx.ComputeIDs()
	if exp := "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"; txID.String() != exp {
		t.Logf("got: %s", txID)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get back the genesis coinbase txid.")
	}
}

func Test_WeightMonotonic(t *testing.T) {
	tx := fromMsgTx(segwitMsgTx())
	base := tx.Weight()

	tx.Outputs = append(tx.Outputs, database.Output{Value: 1, ScriptPubKey: []byte{0x51}})
	withOutput := tx.Weight()
	if withOutput <= base {
		t.Fatalf("Should not decrease weight when adding an output: %d -> %d", base, withOutput)
	}

	tx.Inputs = append(tx.Inputs, database.Input{Vout: 7, Sequence: 0xffffffff})
	withInput := tx.Weight()
	if withInput <= withOutput {
		t.Fatalf("Should not decrease weight when adding an input: %d -> %d", withOutput, withInput)
	}
}

func Test_Header(t *testing.T) {
	merkleRoot, _ := chainhash.NewHashFromStr("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")

	h := database.BlockHeader{
		Version:    1,
		MerkleRoot: *merkleRoot,
		TimeStamp:  1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	}

	if got := len(h.Serialize()); got != database.HeaderSize {
		t.Fatalf("Should serialize an 80 byte header, got %d.", got)
	}

	exp := "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"
	if got := h.Hash().String(); got != exp {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get back the genesis block hash.")
	}
}

func Test_Coinbase(t *testing.T) {
	payout, _ := hex.DecodeString("0014" + "89abcdefabbaabbaabbaabbaabbaabbaabbaabba")
	wtxIDs := []chainhash.Hash{chainhash.DoubleHashH([]byte("a")), chainhash.DoubleHashH([]byte("b"))}

	cb, err := database.NewCoinbase(840000, 12345, payout, wtxIDs)
	if err != nil {
		t.Fatalf("Should be able to build a coinbase: %s", err)
	}

	if len(cb.Inputs) != 1 || !cb.Inputs[0].IsCoinbase || cb.Inputs[0].Vout != 0xffffffff {
		t.Fatalf("Should spend a single null outpoint.")
	}

	if cb.OutputSum() != 12345 {
		t.Fatalf("Should pay exactly the fees, got %d.", cb.OutputSum())
	}

	commitment, err := database.WitnessCommitment(wtxIDs, chainhash.Hash{})
	if err != nil {
		t.Fatalf("Should be able to compute the witness commitment: %s", err)
	}

	script := cb.Outputs[1].ScriptPubKey
	if len(script) != 38 || hex.EncodeToString(script[:6]) != "6a24aa21a9ed" || !bytes.Equal(script[6:], commitment[:]) {
		t.Fatalf("Should carry the witness commitment: %x", script)
	}

	var msg wire.MsgTx
	if err := msg.Deserialize(bytes.NewReader(cb.Serialize())); err != nil {
		t.Fatalf("Should be able to decode the coinbase with wire: %s", err)
	}

	if msg.TxHash() != cb.Meta.TxID {
		t.Logf("got: %s", cb.Meta.TxID)
		t.Logf("exp: %s", msg.TxHash())
		t.Fatalf("Should get back the right coinbase txid.")
	}
}

func Test_POW(t *testing.T) {
	var easy [32]byte
	for i := range easy {
		easy[i] = 0xff
	}

	t.Log("Given the need to find a nonce.")
	{
		t.Logf("\tTest 0:\tWhen the header already solves the target at nonce 0.")
		{
			block, err := database.POW(context.Background(), database.POWArgs{
				Version:  0x20000000,
				Bits:     0x1f00ffff,
				Target:   easy,
				Coinbase: coinbase(t),
				Workers:  4,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine the block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine the block.", success)

			if block.Header.Nonce != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould return nonce 0, got %d.", failed, block.Header.Nonce)
			}
			t.Logf("\t%s\tTest 0:\tShould return nonce 0.", success)
		}

		t.Logf("\tTest 1:\tWhen several workers search the nonce space.")
		{
			var target [32]byte
			target[0] = 0x00
			target[1] = 0x0f
			for i := 2; i < len(target); i++ {
				target[i] = 0xff
			}

			block, err := database.POW(context.Background(), database.POWArgs{
				Version:   0x20000000,
				Bits:      0x1f00ffff,
				Target:    target,
				TimeStamp: 1700000000,
				Coinbase:  coinbase(t),
				Workers:   4,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine the block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to mine the block.", success)

			// Scan sequentially for the first solving nonce.
			h := block.Header
			var exp uint32
			for n := uint32(0); ; n++ {
				h.Nonce = n
				hash := h.Hash()
				if bytes.Compare(hash[:], target[:]) < 0 {
					exp = n
					break
				}
			}

			if block.Header.Nonce != exp {
				t.Fatalf("\t%s\tTest 1:\tShould return the smallest nonce, got %d exp %d.", failed, block.Header.Nonce, exp)
			}
			t.Logf("\t%s\tTest 1:\tShould return the smallest nonce.", success)

			if block.TxIDs()[0] != block.Coinbase().Meta.TxID {
				t.Fatalf("\t%s\tTest 1:\tShould place the coinbase first.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould place the coinbase first.", success)

			if len(block.Lines()) != 3 {
				t.Fatalf("\t%s\tTest 1:\tShould produce header, coinbase and one txid line.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould produce header, coinbase and one txid line.", success)
		}

		t.Logf("\tTest 2:\tWhen the search is cancelled.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := database.POW(ctx, database.POWArgs{Coinbase: coinbase(t), Workers: 2})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 2:\tShould stop with the context error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould stop with the context error.", success)
		}
	}
}

func Test_SigOpCost(t *testing.T) {
	p2pkh, _ := hex.DecodeString("76a914" + "89abcdefabbaabbaabbaabbaabbaabbaabbaabba" + "88ac")
	p2wpkh, _ := hex.DecodeString("0014" + "89abcdefabbaabbaabbaabbaabbaabbaabbaabba")

	tx := database.Tx{
		Version: 2,
		Inputs: []database.Input{
			{
				Witness: [][]byte{{0x30}, {0x02}},
				PrevOut: database.PrevOut{ScriptPubKey: p2wpkh},
				Type:    database.ParseInputType("v0_p2wpkh"),
			},
		},
		Outputs: []database.Output{{Value: 1, ScriptPubKey: p2pkh}},
	}

	if got := tx.SigOpCost(); got != 5 {
		t.Fatalf("Should count 4 for the output and 1 for the witness input, got %d.", got)
	}
}

func Test_NewTx(t *testing.T) {
	rec := database.Record{
		Version: 2,
		Vin: []database.RecordIn{
			{
				TxID:     "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b",
				Vout:     1,
				Witness:  []string{"", "02aa"},
				Sequence: 0xfffffffd,
				PrevOut: database.RecordPrev{
					ScriptPubKey:     "0014aabb",
					ScriptPubKeyType: "v0_p2wpkh",
					Value:            5000,
				},
			},
		},
		Vout: []database.RecordOut{{ScriptPubKey: "51", Value: 4000}},
	}

	tx, err := database.NewTx(rec, "declared")
	if err != nil {
		t.Fatalf("Should be able to convert the record: %s", err)
	}

	in := tx.Inputs[0]
	if in.PrevTxID.String() != rec.Vin[0].TxID {
		t.Fatalf("Should keep the previous txid in display order, got %s.", in.PrevTxID)
	}
	if in.Type.Kind != database.KindP2WPKH || len(in.Witness) != 2 || len(in.Witness[0]) != 0 {
		t.Fatalf("Should decode the witness and input type.")
	}
	if tx.InputSum()-tx.OutputSum() != 1000 {
		t.Fatalf("Should expose the input and output sums.")
	}

	rec.Vout[0].ScriptPubKey = "zz"
	if _, err := database.NewTx(rec, "declared"); err == nil {
		t.Fatalf("Should fail to convert a record with bad hex.")
	}

	if got := database.ParseInputType("nonstandard").String(); got != "unknown(nonstandard)" {
		t.Fatalf("Should keep the declared string for unknown types, got %s.", got)
	}
}

// =============================================================================

func legacyMsgTx() *wire.MsgTx {
	prev := chainhash.DoubleHashH([]byte("prev"))

	msg := wire.NewMsgTx(1)
	msg.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev, 3), []byte{0x01, 0x02, 0x03}, nil))
	msg.AddTxOut(wire.NewTxOut(90000, []byte{0x76, 0xa9, 0x14}))
	msg.AddTxOut(wire.NewTxOut(5000, []byte{0x51}))
	msg.LockTime = 500
	return msg
}

func segwitMsgTx() *wire.MsgTx {
	prev1 := chainhash.DoubleHashH([]byte("prev1"))
	prev2 := chainhash.DoubleHashH([]byte("prev2"))

	msg := wire.NewMsgTx(2)
	msg.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev1, 0), nil, wire.TxWitness{{0x30, 0x44}, {0x02, 0x03}}))
	msg.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev2, 1), []byte{0x51}, nil))
	msg.TxIn[1].Sequence = 0xfffffffd
	msg.AddTxOut(wire.NewTxOut(1234, []byte{0x00, 0x14}))
	return msg
}

func decodeMsgTx(t *testing.T, raw string) *wire.MsgTx {
	t.Helper()

	b, err := hex.DecodeString(raw)
	if err != nil {
		t.Fatalf("Should be able to decode the raw transaction: %s", err)
	}

	var msg wire.MsgTx
	if err := msg.Deserialize(bytes.NewReader(b)); err != nil {
		t.Fatalf("Should be able to deserialize the raw transaction: %s", err)
	}

	return &msg
}

func fromMsgTx(msg *wire.MsgTx) database.Tx {
	tx := database.Tx{
		Version:  msg.Version,
		LockTime: msg.LockTime,
	}

	for _, in := range msg.TxIn {
		tx.Inputs = append(tx.Inputs, database.Input{
			PrevTxID:  in.PreviousOutPoint.Hash,
			Vout:      in.PreviousOutPoint.Index,
			ScriptSig: in.SignatureScript,
			Witness:   in.Witness,
			Sequence:  in.Sequence,
		})
	}

	for _, out := range msg.TxOut {
		tx.Outputs = append(tx.Outputs, database.Output{
			Value:        uint64(out.Value),
			ScriptPubKey: out.PkScript,
		})
	}

	return tx
}

func coinbase(t *testing.T) database.Tx {
	t.Helper()

	cb, err := database.NewCoinbase(1, 0, []byte{0x51}, nil)
	if err != nil {
		t.Fatalf("Should be able to build a coinbase: %s", err)
	}

	return cb
}

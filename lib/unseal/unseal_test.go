// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unseal

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bureau-foundation/permit/lib/fhe"
	"github.com/bureau-foundation/permit/lib/sealing"
)

// tableOpener treats the ciphertext as a lookup key into a fixed table.
type tableOpener map[string]*big.Int

var errUnknownCiphertext = errors.New("unknown ciphertext")

func (o tableOpener) Open(ciphertext []byte) (*big.Int, error) {
	value, ok := o[string(ciphertext)]
	if !ok {
		return nil, errUnknownCiphertext
	}
	return value, nil
}

const testAddress = "0xB170fC5BAC4a87A63fC84653Ee7e0db65CC62f96"

func testEngine() *Engine {
	address, _ := new(big.Int).SetString(testAddress[2:], 16)
	return New(tableOpener{
		"true":    big.NewInt(1),
		"false":   big.NewInt(0),
		"seven":   big.NewInt(7),
		"big":     big.NewInt(937387),
		"address": address,
	})
}

func TestUnsealCiphertext(t *testing.T) {
	engine := testEngine()

	value, err := engine.UnsealCiphertext([]byte("big"))
	if err != nil {
		t.Fatalf("UnsealCiphertext: %v", err)
	}
	if value.Int64() != 937387 {
		t.Errorf("UnsealCiphertext = %s, want 937387", value)
	}

	if _, err := engine.UnsealCiphertext([]byte("nope")); !errors.Is(err, errUnknownCiphertext) {
		t.Errorf("UnsealCiphertext(unknown) error = %v, want errUnknownCiphertext", err)
	}
}

func TestUnsealItem(t *testing.T) {
	engine := testEngine()

	tests := []struct {
		name string
		item fhe.Item
		want any
	}{
		{"bool", fhe.SealedBool([]byte("true")), true},
		{"false", fhe.SealedBool([]byte("false")), false},
		{"uint32", fhe.SealedUint([]byte("seven"), fhe.Uint32), big.NewInt(7)},
		{"address", fhe.SealedAddress([]byte("address")), testAddress},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := engine.UnsealItem(test.item)
			if err != nil {
				t.Fatalf("UnsealItem: %v", err)
			}
			assertClear(t, got, test.want)
		})
	}
}

func TestUnsealItem_Errors(t *testing.T) {
	engine := testEngine()

	_, err := engine.UnsealItem(fhe.Item{Data: []byte("seven"), UType: 99})
	var decodeErr *fhe.DecodeError
	if !errors.As(err, &decodeErr) || !errors.Is(err, fhe.ErrUnknownUType) {
		t.Errorf("unknown utype error = %v, want DecodeError wrapping ErrUnknownUType", err)
	}

	_, err = engine.UnsealItem(fhe.SealedBool([]byte("garbage")))
	if !errors.As(err, &decodeErr) || decodeErr.UType != fhe.Bool {
		t.Errorf("bad ciphertext error = %v, want DecodeError for bool", err)
	}
	if !errors.Is(err, errUnknownCiphertext) {
		t.Errorf("bad ciphertext error = %v, want it to wrap the opener failure", err)
	}
}

func TestUnseal_ShapePreserved(t *testing.T) {
	engine := testEngine()

	// Three levels: a record holding a tuple holding a record, with
	// scalars mixed in at each level.
	input := Record{
		"flag":  Leaf{fhe.SealedBool([]byte("true"))},
		"label": Scalar{"hello"},
		"pair": Tuple{
			Leaf{fhe.SealedUint([]byte("big"), fhe.Uint64)},
			Scalar{int64(5)},
			Record{
				"owner":  Leaf{fhe.SealedAddress([]byte("address"))},
				"counts": Array{Leaf{fhe.SealedUint([]byte("seven"), fhe.Uint8)}, Scalar{nil}},
			},
		},
	}

	output, err := engine.Unseal(input)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}

	record, ok := output.(Record)
	if !ok {
		t.Fatalf("Unseal returned %T, want Record", output)
	}
	if len(record) != 3 {
		t.Fatalf("record has %d keys, want 3", len(record))
	}
	assertClear(t, record["flag"].(Scalar).Value, true)
	assertClear(t, record["label"].(Scalar).Value, "hello")

	pair, ok := record["pair"].(Tuple)
	if !ok || len(pair) != 3 {
		t.Fatalf("pair = %#v, want Tuple of 3", record["pair"])
	}
	assertClear(t, pair[0].(Scalar).Value, big.NewInt(937387))
	assertClear(t, pair[1].(Scalar).Value, int64(5))

	inner := pair[2].(Record)
	assertClear(t, inner["owner"].(Scalar).Value, testAddress)
	counts, ok := inner["counts"].(Array)
	if !ok || len(counts) != 2 {
		t.Fatalf("counts = %#v, want Array of 2", inner["counts"])
	}
	assertClear(t, counts[0].(Scalar).Value, big.NewInt(7))
	if counts[1].(Scalar).Value != nil {
		t.Errorf("counts[1] = %v, want nil", counts[1])
	}

	// The input tree is untouched.
	if _, stillLeaf := input["flag"].(Leaf); !stillLeaf {
		t.Error("Unseal modified its input")
	}
}

func TestUnseal_ErrorNamesPath(t *testing.T) {
	engine := testEngine()

	input := Array{
		Scalar{1},
		Record{"inner": Tuple{Leaf{fhe.SealedBool([]byte("garbage"))}}},
	}
	_, err := engine.Unseal(input)
	if err == nil {
		t.Fatal("Unseal succeeded with an unopenable leaf")
	}
	var decodeErr *fhe.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want DecodeError", err)
	}
	want := "unseal $[1].inner[0]: "
	if got := err.Error(); len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("error = %q, want prefix %q", got, want)
	}
}

func TestFromAny(t *testing.T) {
	node, err := FromAny(map[string]any{
		"a": map[string]any{"data": "0x74727565", "utype": float64(0)},
		"b": []any{"x", float64(3), map[string]any{"utype": "uint32", "data": "0x736576656e"}},
		"c": map[string]any{"data": "not sealed without utype"},
	})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	record := node.(Record)

	leaf, ok := record["a"].(Leaf)
	if !ok || leaf.Item.UType != fhe.Bool || string(leaf.Item.Data) != "true" {
		t.Errorf("a = %#v, want bool leaf over \"true\"", record["a"])
	}
	array := record["b"].(Array)
	if len(array) != 3 {
		t.Fatalf("b has %d elements, want 3", len(array))
	}
	if array[0] != (Scalar{"x"}) {
		t.Errorf("b[0] = %#v", array[0])
	}
	if leaf, ok := array[2].(Leaf); !ok || leaf.Item.UType != fhe.Uint32 {
		t.Errorf("b[2] = %#v, want uint32 leaf", array[2])
	}
	if _, ok := record["c"].(Record); !ok {
		t.Errorf("c = %#v, want Record (no utype key)", record["c"])
	}
}

func TestFromAny_MalformedLeaf(t *testing.T) {
	tests := []struct {
		name  string
		value map[string]any
	}{
		{"missing data", map[string]any{"utype": float64(4)}},
		{"unknown utype", map[string]any{"utype": float64(42), "data": "0x00"}},
		{"fractional utype", map[string]any{"utype": 1.5, "data": "0x00"}},
		{"bad hex", map[string]any{"utype": float64(4), "data": "zz"}},
		{"data not bytes", map[string]any{"utype": float64(4), "data": 12.0}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := FromAny(map[string]any{"field": test.value})
			var decodeErr *fhe.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Errorf("FromAny error = %v, want DecodeError", err)
			}
		})
	}
}

func TestFromAny_UnreadableTag(t *testing.T) {
	tests := []struct {
		name string
		tag  any
		want string
	}{
		{"null", nil, "null"},
		{"negative", float64(-3), "-3"},
		{"negative number text", json.Number("-3"), "-3"},
		{"unknown name", "uint512", `"uint512"`},
		{"boolean", true, "true"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := FromAny(map[string]any{"utype": test.tag, "data": "0x00"})
			var decodeErr *fhe.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("FromAny error = %v, want DecodeError", err)
			}
			if decodeErr.Tag != test.want {
				t.Errorf("Tag = %q, want %q", decodeErr.Tag, test.want)
			}
			if message := err.Error(); strings.Contains(message, "bool:") {
				t.Errorf("error %q names a tag that was never present", message)
			}
		})
	}
}

func TestUnsealAny(t *testing.T) {
	engine := testEngine()

	output, err := engine.UnsealAny([]any{
		map[string]any{"data": "0x74727565", "utype": float64(0)},
		"plain",
		[]fhe.Item{fhe.SealedUint([]byte("seven"), fhe.Uint16)},
	})
	if err != nil {
		t.Fatalf("UnsealAny: %v", err)
	}
	values := output.([]any)
	assertClear(t, values[0], true)
	assertClear(t, values[1], "plain")
	nested := values[2].([]any)
	assertClear(t, nested[0], big.NewInt(7))
}

func TestToAny(t *testing.T) {
	item := fhe.SealedBool([]byte("x"))
	value := ToAny(Record{"k": Tuple{Leaf{item}, Scalar{"s"}}})
	record := value.(map[string]any)
	tuple := record["k"].([]any)
	if got, ok := tuple[0].(fhe.Item); !ok || got.UType != fhe.Bool {
		t.Errorf("leaf = %#v, want fhe.Item", tuple[0])
	}
	if tuple[1] != "s" {
		t.Errorf("scalar = %#v, want \"s\"", tuple[1])
	}
}

type sealedBalance struct {
	Owner   fhe.Item
	Amount  fhe.Item
	Frozen  fhe.Item
	Note    string
	History []fhe.Item
	Tags    map[string]fhe.Item
	Extra   any
	Nested  *sealedBalance
}

type clearBalance struct {
	Owner   common.Address
	Amount  *big.Int
	Frozen  bool
	Note    string
	History []uint32
	Tags    map[string]string
	Extra   any
	Nested  *clearBalance
}

func TestInto(t *testing.T) {
	engine := testEngine()

	source := sealedBalance{
		Owner:   fhe.SealedAddress([]byte("address")),
		Amount:  fhe.SealedUint([]byte("big"), fhe.Uint64),
		Frozen:  fhe.SealedBool([]byte("false")),
		Note:    "memo",
		History: []fhe.Item{fhe.SealedUint([]byte("seven"), fhe.Uint32), fhe.SealedUint([]byte("big"), fhe.Uint32)},
		Tags:    map[string]fhe.Item{"owner": fhe.SealedAddress([]byte("address"))},
		Extra:   map[string]any{"utype": float64(0), "data": "0x74727565"},
		Nested: &sealedBalance{
			Owner:  fhe.SealedAddress([]byte("address")),
			Amount: fhe.SealedUint([]byte("seven"), fhe.Uint8),
			Frozen: fhe.SealedBool([]byte("true")),
		},
	}

	var result clearBalance
	if err := engine.Into(&result, source); err != nil {
		t.Fatalf("Into: %v", err)
	}

	if result.Owner != common.HexToAddress(testAddress) {
		t.Errorf("Owner = %s, want %s", result.Owner.Hex(), testAddress)
	}
	if result.Amount.Int64() != 937387 {
		t.Errorf("Amount = %s, want 937387", result.Amount)
	}
	if result.Frozen {
		t.Error("Frozen = true, want false")
	}
	if result.Note != "memo" {
		t.Errorf("Note = %q, want memo", result.Note)
	}
	if len(result.History) != 2 || result.History[0] != 7 || result.History[1] != 937387 {
		t.Errorf("History = %v, want [7 937387]", result.History)
	}
	if result.Tags["owner"] != testAddress {
		t.Errorf("Tags[owner] = %q, want %s", result.Tags["owner"], testAddress)
	}
	assertClear(t, result.Extra, true)
	if result.Nested == nil || !result.Nested.Frozen || result.Nested.Amount.Int64() != 7 {
		t.Errorf("Nested = %+v, want frozen with amount 7", result.Nested)
	}
}

func TestInto_ShapeErrors(t *testing.T) {
	engine := testEngine()

	var narrow struct{ Amount uint8 }
	err := engine.Into(&narrow, struct{ Amount fhe.Item }{fhe.SealedUint([]byte("big"), fhe.Uint64)})
	if !errors.Is(err, ErrShape) {
		t.Errorf("overflow error = %v, want ErrShape", err)
	}

	var missing struct{ Other bool }
	err = engine.Into(&missing, struct{ Flag fhe.Item }{fhe.SealedBool([]byte("true"))})
	if !errors.Is(err, ErrShape) {
		t.Errorf("missing field error = %v, want ErrShape", err)
	}

	var wrongLength [1]bool
	err = engine.Into(&wrongLength, []fhe.Item{fhe.SealedBool([]byte("true")), fhe.SealedBool([]byte("false"))})
	if !errors.Is(err, ErrShape) {
		t.Errorf("array length error = %v, want ErrShape", err)
	}

	var flag bool
	if err := engine.Into(flag, fhe.SealedBool([]byte("true"))); err == nil {
		t.Error("Into accepted a non-pointer destination")
	}

	var decodeErr *fhe.DecodeError
	err = engine.Into(&flag, fhe.SealedBool([]byte("garbage")))
	if !errors.As(err, &decodeErr) {
		t.Errorf("bad ciphertext error = %v, want DecodeError", err)
	}
}

func TestEngineWithKeyPair(t *testing.T) {
	keypair, err := sealing.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	defer keypair.Close()

	ciphertext, err := sealing.Seal(big.NewInt(42), keypair.PublicKey)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	flag, err := sealing.SealBool(true, keypair.PublicKey)
	if err != nil {
		t.Fatalf("SealBool: %v", err)
	}

	var result struct {
		Value uint64
		Flag  bool
	}
	source := struct {
		Value fhe.Item
		Flag  fhe.Item
	}{fhe.SealedUint(ciphertext, fhe.Uint64), fhe.SealedBool(flag)}
	if err := New(keypair).Into(&result, source); err != nil {
		t.Fatalf("Into: %v", err)
	}
	if result.Value != 42 || !result.Flag {
		t.Errorf("result = %+v, want {42 true}", result)
	}
}

func assertClear(t *testing.T, got, want any) {
	t.Helper()
	switch expected := want.(type) {
	case *big.Int:
		integer, ok := got.(*big.Int)
		if !ok || integer.Cmp(expected) != 0 {
			t.Errorf("got %#v, want %s", got, expected)
		}
	default:
		if got != want {
			t.Errorf("got %#v, want %#v", got, want)
		}
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unseal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/bureau-foundation/permit/lib/fhe"
)

// FromAny classifies a JSON-shaped value into a Node tree.
//
// A map with a "utype" key is a sealed leaf and must also carry "data"
// (0x-prefixed hex or raw bytes). The tag may be a number or a type
// name such as "uint32". Any other map with string keys is a Record.
// Slices and arrays other than byte slices are Arrays. fhe.Item values
// are leaves, Node values are taken as-is, and everything else is a
// Scalar.
func FromAny(value any) (Node, error) {
	return fromAny(value, "$")
}

func fromAny(value any, path string) (Node, error) {
	switch typed := value.(type) {
	case nil:
		return Scalar{}, nil
	case Node:
		return typed, nil
	case fhe.Item:
		return Leaf{Item: typed}, nil
	case *fhe.Item:
		if typed == nil {
			return Scalar{}, nil
		}
		return Leaf{Item: *typed}, nil
	case []byte, hexutil.Bytes, string, bool, json.Number:
		return Scalar{Value: value}, nil
	case map[string]any:
		if _, sealed := typed["utype"]; sealed {
			item, err := itemFromMap(typed)
			if err != nil {
				return nil, fmt.Errorf("unseal %s: %w", path, err)
			}
			return Leaf{Item: item}, nil
		}
		record := make(Record, len(typed))
		for key, element := range typed {
			node, err := fromAny(element, path+"."+key)
			if err != nil {
				return nil, err
			}
			record[key] = node
		}
		return record, nil
	case []any:
		array := make(Array, len(typed))
		for index, element := range typed {
			node, err := fromAny(element, path+"["+strconv.Itoa(index)+"]")
			if err != nil {
				return nil, err
			}
			array[index] = node
		}
		return array, nil
	}

	// Typed containers such as []fhe.Item or map[string][]any.
	reflected := reflect.ValueOf(value)
	switch reflected.Kind() {
	case reflect.Slice, reflect.Array:
		if reflected.Type().Elem().Kind() == reflect.Uint8 {
			return Scalar{Value: value}, nil
		}
		if reflected.Kind() == reflect.Slice && reflected.IsNil() {
			return Array(nil), nil
		}
		array := make(Array, reflected.Len())
		for index := range reflected.Len() {
			node, err := fromAny(reflected.Index(index).Interface(), path+"["+strconv.Itoa(index)+"]")
			if err != nil {
				return nil, err
			}
			array[index] = node
		}
		return array, nil
	case reflect.Map:
		if reflected.Type().Key().Kind() != reflect.String {
			return Scalar{Value: value}, nil
		}
		record := make(Record, reflected.Len())
		iterator := reflected.MapRange()
		for iterator.Next() {
			key := iterator.Key().String()
			node, err := fromAny(iterator.Value().Interface(), path+"."+key)
			if err != nil {
				return nil, err
			}
			record[key] = node
		}
		return record, nil
	}
	return Scalar{Value: value}, nil
}

func itemFromMap(fields map[string]any) (fhe.Item, error) {
	utype, err := parseTag(fields["utype"])
	if err != nil {
		return fhe.Item{}, &fhe.DecodeError{Tag: describeTag(fields["utype"]), Err: err}
	}
	if !utype.Known() {
		return fhe.Item{}, &fhe.DecodeError{UType: utype, Err: fhe.ErrUnknownUType}
	}
	raw, present := fields["data"]
	if !present {
		return fhe.Item{}, &fhe.DecodeError{UType: utype, Err: errors.New("sealed value has no data")}
	}
	data, err := parseData(raw)
	if err != nil {
		return fhe.Item{}, &fhe.DecodeError{UType: utype, Err: err}
	}
	return fhe.Item{Data: data, UType: utype}, nil
}

func parseTag(value any) (fhe.UType, error) {
	var number float64
	switch typed := value.(type) {
	case fhe.UType:
		return typed, nil
	case string:
		return fhe.ParseUType(typed)
	case json.Number:
		parsed, err := strconv.ParseUint(string(typed), 10, 8)
		if err != nil {
			return 0, errors.New("tag is not a small non-negative integer")
		}
		return fhe.UType(parsed), nil
	case float64:
		number = typed
	case int:
		number = float64(typed)
	case int64:
		number = float64(typed)
	case uint64:
		number = float64(typed)
	case uint8:
		return fhe.UType(typed), nil
	case nil:
		return 0, errors.New("tag is null")
	default:
		return 0, fmt.Errorf("tag has type %T", value)
	}
	if number < 0 || number > math.MaxUint8 || number != math.Trunc(number) {
		return 0, errors.New("tag is not a small non-negative integer")
	}
	return fhe.UType(number), nil
}

// describeTag renders an unparsable tag for error messages.
func describeTag(value any) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func parseData(value any) ([]byte, error) {
	switch typed := value.(type) {
	case string:
		data, err := hexutil.Decode(typed)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return data, nil
	case hexutil.Bytes:
		return typed, nil
	case []byte:
		return typed, nil
	default:
		return nil, fmt.Errorf("data has type %T", value)
	}
}

// ToAny converts a Node tree back into JSON-shaped Go values: Arrays
// and Tuples become []any, Records map[string]any, Scalars their value
// and Leaves their fhe.Item.
func ToAny(node Node) any {
	switch typed := node.(type) {
	case nil:
		return nil
	case Leaf:
		return typed.Item
	case *Leaf:
		if typed == nil {
			return nil
		}
		return typed.Item
	case Array:
		return sequenceToAny(typed)
	case Tuple:
		return sequenceToAny(typed)
	case Record:
		if typed == nil {
			return map[string]any(nil)
		}
		result := make(map[string]any, len(typed))
		for key, element := range typed {
			result[key] = ToAny(element)
		}
		return result
	case Scalar:
		return typed.Value
	default:
		return nil
	}
}

func sequenceToAny(elements []Node) []any {
	if elements == nil {
		return nil
	}
	result := make([]any, len(elements))
	for index, element := range elements {
		result[index] = ToAny(element)
	}
	return result
}

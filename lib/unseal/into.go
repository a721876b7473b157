// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unseal

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bureau-foundation/permit/lib/fhe"
)

// ErrShape is wrapped by Into when the destination cannot hold the
// source at some path.
var ErrShape = errors.New("destination shape does not match source")

var (
	itemType    = reflect.TypeFor[fhe.Item]()
	bigIntType  = reflect.TypeFor[*big.Int]()
	addressType = reflect.TypeFor[common.Address]()
)

// Into unseals src into the value dst points to. The destination
// mirrors the source: structs field by field (by name), slices and
// arrays element by element, string-keyed maps key by key. Each
// fhe.Item in the source lands in a destination of type bool,
// *big.Int, string, common.Address, any, or an integer kind wide
// enough for the value. Clear values are assigned when their types are
// compatible. Destination pointers are allocated as needed.
//
// On error dst may be partially written.
func (e *Engine) Into(dst, src any) error {
	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("unseal: destination must be a non-nil pointer, got %T", dst)
	}
	return e.into(target.Elem(), reflect.ValueOf(src), "$")
}

func (e *Engine) into(dst, src reflect.Value, path string) error {
	for src.IsValid() && (src.Kind() == reflect.Interface || (src.Kind() == reflect.Pointer && src.Type() != bigIntType)) {
		if src.IsNil() {
			dst.SetZero()
			return nil
		}
		src = src.Elem()
	}
	if !src.IsValid() || (src.Type() == bigIntType && src.IsNil()) {
		dst.SetZero()
		return nil
	}

	if dst.Kind() == reflect.Interface {
		value, err := e.UnsealAny(src.Interface())
		if err != nil {
			return prefixPath(err, path)
		}
		if value == nil {
			dst.SetZero()
			return nil
		}
		converted := reflect.ValueOf(value)
		if !converted.Type().AssignableTo(dst.Type()) {
			return fmt.Errorf("unseal %s: %w: %s into %s", path, ErrShape, converted.Type(), dst.Type())
		}
		dst.Set(converted)
		return nil
	}

	if dst.Kind() == reflect.Pointer && dst.Type() != bigIntType {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return e.into(dst.Elem(), src, path)
	}

	if src.Type() == itemType {
		value, err := e.UnsealItem(src.Interface().(fhe.Item))
		if err != nil {
			return fmt.Errorf("unseal %s: %w", path, err)
		}
		return assign(dst, reflect.ValueOf(value), path)
	}

	if !containsItem(src.Type(), map[reflect.Type]bool{}) {
		return assign(dst, src, path)
	}

	switch src.Kind() {
	case reflect.Struct:
		return e.intoStruct(dst, src, path)
	case reflect.Slice, reflect.Array:
		return e.intoSequence(dst, src, path)
	case reflect.Map:
		return e.intoMap(dst, src, path)
	}
	return fmt.Errorf("unseal %s: %w: %s into %s", path, ErrShape, src.Type(), dst.Type())
}

func (e *Engine) intoStruct(dst, src reflect.Value, path string) error {
	if dst.Kind() != reflect.Struct {
		return fmt.Errorf("unseal %s: %w: struct %s into %s", path, ErrShape, src.Type(), dst.Type())
	}
	sourceType := src.Type()
	for index := range sourceType.NumField() {
		field := sourceType.Field(index)
		if !field.IsExported() {
			continue
		}
		target := dst.FieldByName(field.Name)
		if !target.IsValid() || !target.CanSet() {
			return fmt.Errorf("unseal %s.%s: %w: %s has no field %s", path, field.Name, ErrShape, dst.Type(), field.Name)
		}
		if err := e.into(target, src.Field(index), path+"."+field.Name); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) intoSequence(dst, src reflect.Value, path string) error {
	length := src.Len()
	switch dst.Kind() {
	case reflect.Slice:
		if src.Kind() == reflect.Slice && src.IsNil() {
			dst.SetZero()
			return nil
		}
		dst.Set(reflect.MakeSlice(dst.Type(), length, length))
	case reflect.Array:
		if dst.Len() != length {
			return fmt.Errorf("unseal %s: %w: %d elements into %s", path, ErrShape, length, dst.Type())
		}
	default:
		return fmt.Errorf("unseal %s: %w: %s into %s", path, ErrShape, src.Type(), dst.Type())
	}
	for index := range length {
		if err := e.into(dst.Index(index), src.Index(index), path+"["+strconv.Itoa(index)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) intoMap(dst, src reflect.Value, path string) error {
	if dst.Kind() != reflect.Map || src.Type().Key().Kind() != reflect.String || dst.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("unseal %s: %w: %s into %s", path, ErrShape, src.Type(), dst.Type())
	}
	if src.IsNil() {
		dst.SetZero()
		return nil
	}
	result := reflect.MakeMapWithSize(dst.Type(), src.Len())
	iterator := src.MapRange()
	for iterator.Next() {
		key := iterator.Key().String()
		element := reflect.New(dst.Type().Elem()).Elem()
		if err := e.into(element, iterator.Value(), path+"."+key); err != nil {
			return err
		}
		result.SetMapIndex(reflect.ValueOf(key).Convert(dst.Type().Key()), element)
	}
	dst.Set(result)
	return nil
}

// assign stores a cleartext value into dst, converting only between
// representations of the same kind of value.
func assign(dst, value reflect.Value, path string) error {
	if value.Type().AssignableTo(dst.Type()) {
		if value.Type() == bigIntType {
			dst.Set(reflect.ValueOf(new(big.Int).Set(value.Interface().(*big.Int))))
			return nil
		}
		dst.Set(value)
		return nil
	}

	if value.Type() == bigIntType {
		integer := value.Interface().(*big.Int)
		switch dst.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if integer.Sign() >= 0 && integer.BitLen() <= dst.Type().Bits() {
				dst.SetUint(integer.Uint64())
				return nil
			}
			return fmt.Errorf("unseal %s: %w: %s overflows %s", path, ErrShape, integer, dst.Type())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if integer.Sign() >= 0 && integer.BitLen() < dst.Type().Bits() {
				dst.SetInt(integer.Int64())
				return nil
			}
			return fmt.Errorf("unseal %s: %w: %s overflows %s", path, ErrShape, integer, dst.Type())
		}
	}

	if value.Kind() == reflect.String && dst.Type() == addressType {
		text := value.String()
		if !common.IsHexAddress(text) {
			return fmt.Errorf("unseal %s: %w: %q is not an address", path, ErrShape, text)
		}
		dst.Set(reflect.ValueOf(common.HexToAddress(text)))
		return nil
	}

	if sameFamily(value.Kind(), dst.Kind()) && value.Type().ConvertibleTo(dst.Type()) {
		dst.Set(value.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("unseal %s: %w: %s into %s", path, ErrShape, value.Type(), dst.Type())
}

func sameFamily(a, b reflect.Kind) bool {
	return kindFamily(a) != "" && kindFamily(a) == kindFamily(b)
}

func kindFamily(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "bool"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	return ""
}

// containsItem reports whether values of t can hold an fhe.Item.
// Interfaces might, so they count.
func containsItem(t reflect.Type, seen map[reflect.Type]bool) bool {
	if t == itemType || t.Kind() == reflect.Interface {
		return true
	}
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return containsItem(t.Elem(), seen)
	case reflect.Struct:
		for index := range t.NumField() {
			if t.Field(index).IsExported() && containsItem(t.Field(index).Type, seen) {
				return true
			}
		}
	}
	return false
}

func prefixPath(err error, path string) error {
	if path == "$" {
		return err
	}
	return fmt.Errorf("at %s: %w", path, err)
}

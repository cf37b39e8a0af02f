/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strings"
)

// Identifier logs lazily the type name of the passed value
func Identifier(f any) fmt.Stringer {
	return identifier{f: f}
}

type identifier struct {
	f any
}

func (i identifier) String() string {
	if i.f == nil {
		return "<nil view>"
	}
	t := reflect.TypeOf(i.f)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "/" + t.Name()
}

// Base64 logs lazily a byte array in base64 format
func Base64(b []byte) fmt.Stringer {
	return base64Enc(b)
}

type base64Enc []byte

func (b base64Enc) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// Join logs lazily a list of stringers
func Join[S fmt.Stringer](items []S) fmt.Stringer {
	return joiner[S](items)
}

type joiner[S fmt.Stringer] []S

func (j joiner[S]) String() string {
	parts := make([]string, len(j))
	for i, item := range j {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Hash represents the 256-bit (32 bytes) result of a cryptographic hash, such
// as a storage engine root or a code digest.
type Hash [32]byte

// Key represents the 256-bit (32 bytes) contract-chosen key of a storage slot.
type Key [32]byte

// Word represents a 256-bit (32 byte) storage value.
type Word [32]byte

// ContractID represents the 256-bit (32 bytes) identity of a deployed
// contract.
type ContractID [32]byte

// Data represents the input or output of contract invocations.
type Data []byte

// Gas represents the type used to represent Gas values.
type Gas int64

// Snapshot is a handle for a recoverable state of the storage context within
// one transaction.
type Snapshot int

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (c ContractID) String() string {
	return fmt.Sprintf("0x%x", c[:])
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x", w[:])
}

// Uint64 interprets the least significant 8 bytes of the word as a big-endian
// unsigned integer.
func (w Word) Uint64() uint64 {
	return binary.BigEndian.Uint64(w[24:32])
}

// ToUint256 converts the word into its 256-bit integer interpretation.
func (w Word) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(w[:])
}

func (w Word) Cmp(o Word) int {
	return bytes.Compare(w[:], o[:])
}

// NewWord creates a new Word instance from up to 4 uint64 arguments. The
// arguments are given in the order from most significant to least significant
// by padding leading zeros as needed. No argument results in a word of zero.
func NewWord(args ...uint64) (result Word) {
	if len(args) > 4 {
		panic("too many arguments")
	}
	offset := 4 - len(args)
	for i := 0; i < len(args) && i < 4; i++ {
		start := (offset * 8) + i*8
		end := start + 8
		binary.BigEndian.PutUint64(result[start:end], args[i])
	}
	return
}

// WordFromUint256 converts a *uint256.Int to a Word. If the input is nil, it
// returns zero.
func WordFromUint256(value *uint256.Int) (result Word) {
	if value == nil {
		return result
	}
	return value.Bytes32()
}

func (h Hash) MarshalText() ([]byte, error) {
	return bytesToText(h[:])
}

func (h *Hash) UnmarshalText(data []byte) error {
	return textToBytes(h[:], data)
}

func (c ContractID) MarshalText() ([]byte, error) {
	return bytesToText(c[:])
}

func (c *ContractID) UnmarshalText(data []byte) error {
	return textToBytes(c[:], data)
}

func (w Word) MarshalText() ([]byte, error) {
	return bytesToText(w[:])
}

func (w *Word) UnmarshalText(data []byte) error {
	return textToBytes(w[:], data)
}

func bytesToText(data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", data)), nil
}

func textToBytes(trg []byte, data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	data, err := hex.DecodeString(s[2:])
	if err != nil {
		return err
	}
	if want, got := len(trg), len(data); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg, data)
	return nil
}

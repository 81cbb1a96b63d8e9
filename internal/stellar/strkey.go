// Package stellar implements the strkey encoding for Stellar account
// identifiers: G... addresses for plain ed25519 accounts and M... addresses
// for muxed accounts carrying a 64-bit sub-account id.
package stellar

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
)

// Version bytes per the strkey format (value << 3 selects the leading letter).
const (
	versionAccountID byte = 6 << 3  // 'G'
	versionMuxed     byte = 12 << 3 // 'M'
)

const (
	rawAccountIDLen = 1 + 32 + 2     // version + ed25519 key + checksum
	rawMuxedLen     = 1 + 32 + 8 + 2 // version + ed25519 key + muxed id + checksum
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

var errInvalidStrkey = errors.New("invalid strkey")

// crc16 computes the CRC16-XModem checksum (poly 0x1021, init 0) used by
// strkey.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func encode(version byte, payload []byte) string {
	raw := make([]byte, 0, len(payload)+3)
	raw = append(raw, version)
	raw = append(raw, payload...)
	checksum := crc16(raw)
	raw = append(raw, byte(checksum), byte(checksum>>8))
	return b32.EncodeToString(raw)
}

func decode(s string, version byte, rawLen int) ([]byte, error) {
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, errInvalidStrkey
	}
	if len(raw) != rawLen {
		return nil, errInvalidStrkey
	}
	if raw[0] != version {
		return nil, errInvalidStrkey
	}
	payload := raw[1 : len(raw)-2]
	checksum := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8
	if crc16(raw[:len(raw)-2]) != checksum {
		return nil, errInvalidStrkey
	}
	return payload, nil
}

// EncodeAccountID encodes a 32-byte ed25519 public key as a G... address.
func EncodeAccountID(key []byte) (string, error) {
	if len(key) != 32 {
		return "", fmt.Errorf("account key must be 32 bytes, got %d", len(key))
	}
	return encode(versionAccountID, key), nil
}

// EncodeMuxed encodes a 32-byte ed25519 public key plus a sub-account id as
// an M... address. The id is appended big-endian after the key.
func EncodeMuxed(key []byte, id uint64) (string, error) {
	if len(key) != 32 {
		return "", fmt.Errorf("account key must be 32 bytes, got %d", len(key))
	}
	payload := make([]byte, 40)
	copy(payload, key)
	binary.BigEndian.PutUint64(payload[32:], id)
	return encode(versionMuxed, payload), nil
}

// DecodeAccountID decodes a G... address into its ed25519 public key.
func DecodeAccountID(s string) ([]byte, error) {
	return decode(s, versionAccountID, rawAccountIDLen)
}

// DecodeMuxed decodes an M... address into the underlying G... address and
// the muxed sub-account id.
func DecodeMuxed(s string) (account string, id uint64, err error) {
	payload, err := decode(s, versionMuxed, rawMuxedLen)
	if err != nil {
		return "", 0, err
	}
	account, err = EncodeAccountID(payload[:32])
	if err != nil {
		return "", 0, err
	}
	return account, binary.BigEndian.Uint64(payload[32:]), nil
}

// IsValidAccountID reports whether s is a well-formed G... or M... address.
func IsValidAccountID(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case 'G':
		_, err := DecodeAccountID(s)
		return err == nil
	case 'M':
		_, _, err := DecodeMuxed(s)
		return err == nil
	default:
		return false
	}
}

// IsMuxed reports whether s is a well-formed M... address.
func IsMuxed(s string) bool {
	if s == "" || s[0] != 'M' {
		return false
	}
	_, _, err := DecodeMuxed(s)
	return err == nil
}

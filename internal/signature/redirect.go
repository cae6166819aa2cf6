// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

package signature

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ChecksumParam is the callback parameter holding the checksum.
const ChecksumParam = "CHECKSUMHASH"

// The gateway's checksum scheme fixes the IV and uses a 4 character salt.
const (
	redirectIV = "@@@@&&&&####$$$$"
	saltLength = 4
	saltChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RedirectVerifier verifies redirect-model checksums.
//
// Checksum construction, given a canonical string s:
//
//	salt     = 4 random characters
//	hash     = hex(sha256(s + "|" + salt)) + salt
//	checksum = base64(AES-CBC(key=MerchantKey, iv="@@@@&&&&####$$$$", PKCS#7(hash)))
//
// For parameter maps, s is the values ordered by key and joined with "|",
// with the literal "null" replaced by an empty string.
type RedirectVerifier struct {
	MerchantKey []byte
}

// NewRedirectVerifier returns a verifier keyed by merchantKey (16, 24 or 32 bytes).
func NewRedirectVerifier(merchantKey string) *RedirectVerifier {
	return &RedirectVerifier{MerchantKey: []byte(merchantKey)}
}

// Verify removes CHECKSUMHASH from params and checks it against the rest.
// A normal mismatch returns (false, nil). An absent or undecodable checksum
// returns (false, ErrMalformedChecksum).
func (v *RedirectVerifier) Verify(params map[string]string) (bool, error) {
	checksum, ok := params[ChecksumParam]
	if !ok || checksum == "" {
		return false, fmt.Errorf("%w: %s absent", ErrMalformedChecksum, ChecksumParam)
	}
	return v.VerifyString(CanonicalParams(params), checksum)
}

// VerifyString checks checksum against an already canonical string, such as
// a status-check JSON body. A well-formed checksum that decrypts to bad
// padding was made with another key or altered in transit, and is a
// mismatch rather than a malformed value.
func (v *RedirectVerifier) VerifyString(canonical, checksum string) (bool, error) {
	plain, err := v.decrypt(checksum)
	if errors.Is(err, errBadPadding) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(plain) < saltLength+sha256.Size*2 {
		return false, fmt.Errorf("%w: short checksum", ErrMalformedChecksum)
	}
	salt := plain[len(plain)-saltLength:]
	expected := hashWithSalt(canonical, salt)
	return hmac.Equal([]byte(expected), []byte(plain)), nil
}

// Sign computes the checksum for params, ignoring any CHECKSUMHASH entry.
func (v *RedirectVerifier) Sign(params map[string]string) (string, error) {
	return v.SignString(CanonicalParams(params))
}

// SignString computes the checksum for a canonical string.
func (v *RedirectVerifier) SignString(canonical string) (string, error) {
	salt, err := randomSalt()
	if err != nil {
		return "", err
	}
	return v.encrypt(hashWithSalt(canonical, salt))
}

// CanonicalParams builds the string the checksum covers: values of every
// key except CHECKSUMHASH, sorted by key, joined by "|".
func CanonicalParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ChecksumParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, len(keys))
	for i, k := range keys {
		val := params[k]
		if strings.EqualFold(val, "null") {
			val = ""
		}
		values[i] = val
	}
	return strings.Join(values, "|")
}

func hashWithSalt(canonical, salt string) string {
	sum := sha256.Sum256([]byte(canonical + "|" + salt))
	return hex.EncodeToString(sum[:]) + salt
}

func randomSalt() (string, error) {
	buf := make([]byte, saltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	for i, b := range buf {
		buf[i] = saltChars[int(b)%len(saltChars)]
	}
	return string(buf), nil
}

func (v *RedirectVerifier) encrypt(plain string) (string, error) {
	block, err := aes.NewCipher(v.MerchantKey)
	if err != nil {
		return "", fmt.Errorf("invalid merchant key: %w", err)
	}
	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(redirectIV)).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (v *RedirectVerifier) decrypt(checksum string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(checksum)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedChecksum, err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad block length", ErrMalformedChecksum)
	}
	block, err := aes.NewCipher(v.MerchantKey)
	if err != nil {
		return "", fmt.Errorf("invalid merchant key: %w", err)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(redirectIV)).CryptBlocks(out, raw)
	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

var errBadPadding = errors.New("bad padding")

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}

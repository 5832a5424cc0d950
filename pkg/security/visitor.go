package security

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/angelmondragon/sharecart-backend/pkg/config"
)

// maxKeyLen is the largest key blake2b accepts for keyed hashing.
const maxKeyLen = 64

// AddressHasher turns a visitor network address into the value stored on visit
// events. When hashing is disabled the normalized address is returned as-is.
type AddressHasher struct {
	enabled bool
	key     []byte
}

// NewAddressHasher builds a hasher from the privacy settings.
func NewAddressHasher(cfg config.PrivacyConfig) (*AddressHasher, error) {
	if !cfg.HashVisitorAddress {
		return &AddressHasher{}, nil
	}
	key := []byte(cfg.AddressSalt)
	if len(key) == 0 {
		return nil, fmt.Errorf("address salt is required when visitor address hashing is enabled")
	}
	if len(key) > maxKeyLen {
		key = key[:maxKeyLen]
	}
	return &AddressHasher{enabled: true, key: key}, nil
}

// Enabled reports whether addresses are hashed before storage.
func (h *AddressHasher) Enabled() bool {
	return h != nil && h.enabled
}

// Hash returns the storable form of addr, or nil when addr is empty.
func (h *AddressHasher) Hash(addr string) (*string, error) {
	normalized := NormalizeAddress(addr)
	if normalized == "" {
		return nil, nil
	}
	if !h.Enabled() {
		return &normalized, nil
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		return nil, fmt.Errorf("init blake2b: %w", err)
	}
	mac.Write([]byte(normalized))
	sum := hex.EncodeToString(mac.Sum(nil))
	return &sum, nil
}

// NormalizeAddress strips ports and whitespace and canonicalizes IP literals.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.Trim(addr, "[]")
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return addr
}

// Package domain defines the value types and collaborator interfaces shared
// by the scanner core: token mappings, venue quotes, opportunities, and the
// rate guard contract. Concrete adapters live in their own packages.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenMapping resolves a canonical symbol to the identifier a venue needs to
// quote it on one network: a contract address plus decimals for on-chain
// venues, a plain ticker for centralized ones.
type TokenMapping struct {
	Symbol     string
	ChainID    int
	Identifier string
	Decimals   int
}

// TokenMap is the immutable symbol registry for one scanner instance. It is
// built once at wire time and is safe for unsynchronized concurrent reads.
type TokenMap struct {
	byKey map[string]TokenMapping
}

func tokenKey(symbol string, chainID int) string {
	return strings.ToLower(strings.TrimSpace(symbol)) + "@" + strconv.Itoa(chainID)
}

// NewTokenMap builds a TokenMap from the given mappings. A duplicate
// (symbol, chain) entry is a configuration error.
func NewTokenMap(mappings []TokenMapping) (*TokenMap, error) {
	byKey := make(map[string]TokenMapping, len(mappings))
	for _, m := range mappings {
		if strings.TrimSpace(m.Symbol) == "" {
			return nil, fmt.Errorf("domain: token mapping with empty symbol (chain %d)", m.ChainID)
		}
		k := tokenKey(m.Symbol, m.ChainID)
		if _, dup := byKey[k]; dup {
			return nil, fmt.Errorf("domain: duplicate token mapping %s on chain %d", m.Symbol, m.ChainID)
		}
		byKey[k] = m
	}
	return &TokenMap{byKey: byKey}, nil
}

// Resolve returns the mapping for symbol on the given chain. Lookup is
// case-insensitive so address-like identifiers with mixed-case checksums do
// not cause spurious misses.
func (t *TokenMap) Resolve(symbol string, chainID int) (TokenMapping, bool) {
	m, ok := t.byKey[tokenKey(symbol, chainID)]
	return m, ok
}

// Len returns the number of registered mappings.
func (t *TokenMap) Len() int {
	return len(t.byKey)
}

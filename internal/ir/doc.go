// Package ir provides the value model for entity data flowing between the
// query layer and the backend store.
//
// This package contains value definitions only. All other internal packages
// may import ir; ir imports nothing internal. This keeps it the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use IRInt or IRDecimal for numbers
//   - Decimals are exact (shopspring/decimal) and serialize as strings
//   - Nulls are explicit (IRNull), never a Go nil inside an IRObject
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for content hashing and for stored record data
package ir

package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultVoucherPrefix is used when no prefix is configured.
const DefaultVoucherPrefix = "TWC"

// InitialVoucherSuffix is the implicit maximum of an empty store; the first
// allocated code therefore ends in 1000.
const InitialVoucherSuffix int64 = 999

// VoucherCode is a sequential code of the form "<PREFIX>-<integer>".
type VoucherCode string

// NewVoucherCode formats prefix and suffix into a code.
func NewVoucherCode(prefix string, suffix int64) VoucherCode {
	return VoucherCode(fmt.Sprintf("%s-%d", prefix, suffix))
}

// Suffix parses the integer after the last separator.
func (v VoucherCode) Suffix() (int64, bool) {
	s := string(v)
	idx := strings.LastIndex(s, "-")
	if idx < 0 || idx == len(s)-1 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Valid reports whether v is exactly "<prefix>-<digits>".
func (v VoucherCode) Valid(prefix string) bool {
	digits, ok := strings.CutPrefix(string(v), prefix+"-")
	if !ok || digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return false
	}
	_, ok = v.Suffix()
	return ok
}

func (v VoucherCode) String() string {
	return string(v)
}

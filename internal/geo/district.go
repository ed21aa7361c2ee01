package geo

import (
	"strconv"
	"strings"
)

// DelegateDistrict is the Census code for a non-voting delegate seat (DC). The legislator roster files the
// same seat under district 0, so it is folded into the at-large number.
const DelegateDistrict = 98

// NormalizeDistrict turns a raw congressional district code into the roster's district number.
// It is idempotent: NormalizeDistrict("0") == NormalizeDistrict("00") == NormalizeDistrict("98") == 0.
// Codes that are not numeric (Census uses "ZZ" for undefined areas) report ok == false.
func NormalizeDistrict(raw string) (n int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, false
	}
	if n == DelegateDistrict {
		n = 0
	}
	return n, true
}

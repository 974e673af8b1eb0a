package validator

import "strings"

// digits strips everything but ASCII digits.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCNPJ reports whether s holds a 14-digit CNPJ with correct check digits.
func ValidCNPJ(s string) bool {
	d := digits(s)
	if len(d) != 14 || repeated(d) {
		return false
	}
	w1 := []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	return checkDigit(d[:12], w1) == int(d[12]-'0') && checkDigit(d[:13], w2) == int(d[13]-'0')
}

// ValidCPF reports whether s holds an 11-digit CPF with correct check digits.
func ValidCPF(s string) bool {
	d := digits(s)
	if len(d) != 11 || repeated(d) {
		return false
	}
	w1 := []int{10, 9, 8, 7, 6, 5, 4, 3, 2}
	w2 := []int{11, 10, 9, 8, 7, 6, 5, 4, 3, 2}
	return checkDigit(d[:9], w1) == int(d[9]-'0') && checkDigit(d[:10], w2) == int(d[10]-'0')
}

// ValidTaxID accepts either a CNPJ or a CPF.
func ValidTaxID(s string) bool {
	switch len(digits(s)) {
	case 14:
		return ValidCNPJ(s)
	case 11:
		return ValidCPF(s)
	}
	return false
}

// checkDigit computes a modulus-11 check digit.
func checkDigit(d string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(d[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

func repeated(d string) bool {
	return strings.Count(d, d[:1]) == len(d)
}

package bytecode

// ExtA and ExtB prefix an otherwise-too-narrow immediate: each prefix
// byte is followed by one data byte holding the next-most-significant
// 256s digit of the final value, most significant prefix first, so a
// value that needs k prefixes encodes as k*2 prefix bytes followed by
// the instruction's own opcode+data pair.
//
// original_source/vm/MethodBuilder.cpp computes sizeofExtA/sizeofExtB
// (dividing by 256 repeatedly, charging 2 bytes per nonzero step) but
// leaves encodeExtA/encodeExtB as LODTALK_UNIMPLEMENTED() stubs; both
// are fully implemented here.

// extensionDigits splits value's 256s digits above the low byte, most
// significant first: extensionDigits(0x12345) -> [0x01, 0x23], with the
// low byte 0x45 left for the caller to place in the instruction itself.
func extensionDigits(value int) []byte {
	v := value >> 8
	var digits []byte
	for v != 0 {
		digits = append(digits, byte(v&0xFF))
		v >>= 8
	}
	// digits is currently least-significant-first; reverse it.
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return digits
}

// sizeofExtA returns the number of bytes an ExtA prefix chain needs to
// extend value, 0 if value fits in a single byte already.
func sizeofExtA(value int) int { return len(extensionDigits(value)) * 2 }

// sizeofExtB is identical in shape to sizeofExtA; the two prefixes
// extend different operand positions of the instruction they precede
// (ExtA the value operand, ExtB the opcode-selecting operand), but both
// carry one 256s digit per prefix byte pair.
func sizeofExtB(value int) int { return len(extensionDigits(value)) * 2 }

// encodeExtA appends the ExtA prefix chain needed to extend value onto
// buf, returning the extended buffer and the low byte left for the
// instruction's own encoding.
func encodeExtA(buf []byte, value int) ([]byte, byte) {
	for _, d := range extensionDigits(value) {
		buf = append(buf, byte(ExtA), d)
	}
	return buf, byte(value & 0xFF)
}

// encodeExtB is encodeExtA's twin for the instruction's second extended
// operand.
func encodeExtB(buf []byte, value int) ([]byte, byte) {
	for _, d := range extensionDigits(value) {
		buf = append(buf, byte(ExtB), d)
	}
	return buf, byte(value & 0xFF)
}

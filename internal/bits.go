package internal

// Sext sign extends the low 'width' bits of value to 16 bits.
func Sext(value uint16, width int) uint16 {
	value &= (1 << width) - 1
	if (value>>(width-1))&1 != 0 {
		value |= 0xffff << width
	}
	return value
}

// Field extracts 'width' bits of word starting at bit 'shift'.
func Field(word uint16, shift int, width int) uint16 {
	return (word >> shift) & ((1 << width) - 1)
}

// FitsSigned returns true if value is representable as a 'width' bit
// two's complement field.
func FitsSigned(value int, width int) bool {
	limit := 1 << (width - 1)
	return value >= -limit && value < limit
}

// FitsUnsigned returns true if value is representable as a 'width' bit
// unsigned field.
func FitsUnsigned(value int, width int) bool {
	return value >= 0 && value < (1<<width)
}

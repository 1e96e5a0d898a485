// Package morton implements 3D Z-order (Morton) codes.
//
// Bit i of x is stored at bit 3i of the code, bit i of y at 3i+1 and
// bit i of z at 3i+2, so codes of nearby voxels tend to be close and
// a grid stored in code order keeps neighbourhoods in nearby memory.
package morton

// MaxBits is the number of bits per coordinate that fit in a 64-bit code.
const MaxBits = 21

const coordMask = 1<<MaxBits - 1

// expand3 spreads the low 21 bits of v so that two zero bits separate
// consecutive input bits.
func expand3(v uint64) uint64 {
	v &= coordMask
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

// compact3 is the inverse of expand3.
func compact3(v uint64) uint64 {
	v &= 0x1249249249249249
	v = (v ^ v>>2) & 0x10c30c30c30c30c3
	v = (v ^ v>>4) & 0x100f00f00f00f00f
	v = (v ^ v>>8) & 0x1f0000ff0000ff
	v = (v ^ v>>16) & 0x1f00000000ffff
	v = (v ^ v>>32) & coordMask
	return v
}

// Encode interleaves the coordinates into a Morton code.
// Only the low MaxBits bits of each coordinate are used.
func Encode(x, y, z uint32) uint64 {
	return expand3(uint64(x)) | expand3(uint64(y))<<1 | expand3(uint64(z))<<2
}

// Decode extracts the coordinates from a Morton code.
func Decode(code uint64) (x, y, z uint32) {
	return uint32(compact3(code)), uint32(compact3(code >> 1)), uint32(compact3(code >> 2))
}

// Count returns the number of codes in a cube with 2^level voxels
// per axis.
func Count(level int) uint64 {
	return 1 << (3 * uint(level))
}

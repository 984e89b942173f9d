package rom

import "encoding/binary"

// VectorTableSize is the 256-byte M68000 exception vector table occupying
// ROM bytes 0x000..0x0FF.
const VectorTableSize = 256

// NumVectors is VectorTableSize / 4: the initial SSP and PC plus every
// exception vector slot.
const NumVectors = VectorTableSize / 4

// BuildVectorTable lays out the vector table: slot 0 is the initial
// supervisor stack pointer, slot 1 the initial PC (the ROM entry point,
// always 0x200 in this toolchain), and every other slot a "safe trap"
// address — the entry stub itself, since an unexpected exception on this
// hardware should fall back into the same reset path rather than run off
// into undefined memory.
func BuildVectorTable(initialSP, entryPoint, safeTrap uint32) []byte {
	out := make([]byte, VectorTableSize)
	binary.BigEndian.PutUint32(out[0:4], initialSP)
	binary.BigEndian.PutUint32(out[4:8], entryPoint)
	for slot := 2; slot < NumVectors; slot++ {
		binary.BigEndian.PutUint32(out[slot*4:slot*4+4], safeTrap)
	}
	return out
}

// CodeBase is the fixed offset in the image where code/data begins,
// spec.md §6: "Bytes 0x200..: emitted code and data, entry point at
// 0x200."
const CodeBase = 0x200

// Checksum sums every big-endian 16-bit word from CodeBase to the end of
// the image, modulo 0x10000 — spec.md §6's checksum algorithm.
func Checksum(image []byte) uint16 {
	var sum uint32
	for i := CodeBase; i+1 < len(image); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(image[i : i+2]))
	}
	if (len(image)-CodeBase)%2 == 1 {
		sum += uint32(image[len(image)-1]) << 8
	}
	return uint16(sum % 0x10000)
}

// Build assembles the full ROM image: vector table, header (with checksum
// patched in after code is known), then the code/data bytes.
func Build(cfg Config, initialSP, entryPoint, safeTrap uint32, code []byte) []byte {
	vectors := BuildVectorTable(initialSP, entryPoint, safeTrap)
	header := cfg.Build()

	image := make([]byte, 0, VectorTableSize+HeaderSize+len(code))
	image = append(image, vectors...)
	image = append(image, header...)
	image = append(image, code...)

	sum := Checksum(image)
	binary.BigEndian.PutUint16(image[VectorTableSize+ChecksumOffset:VectorTableSize+ChecksumOffset+2], sum)
	return image
}

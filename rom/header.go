// Package rom builds the Mega Drive ROM image: the M68000 vector table,
// the fixed 256-byte header record, and the checksum over the code/data
// region. Grounded on rush/aot/linker.go's format-specific header writers
// (writeMachOHeader et al.), generalized from a simplified Mach-O/ELF/PE
// header to the Mega Drive's exact fixed-field layout.
package rom

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const HeaderSize = 256

// field widths, in declaration order, summing to exactly HeaderSize.
const (
	systemNameLen   = 16
	copyrightLen    = 16
	domesticLen     = 48
	overseasLen     = 48
	serialLen       = 14
	checksumLen     = 2
	ioSupportLen    = 16
	romStartLen     = 4
	romEndLen       = 4
	ramStartLen     = 4
	ramEndLen       = 4
	sramInfoLen     = 12
	modemInfoLen    = 12
	reservedLen     = 40
	regionLen       = 16
)

// Config is the textual/numeric content of a ROM header, before it is
// rendered to its fixed-width byte record.
type Config struct {
	SystemName   string
	Copyright    string
	DomesticName string
	OverseasName string
	Serial       string
	IOSupport    string
	ROMStart     uint32
	ROMEnd       uint32
	RAMStart     uint32
	RAMEnd       uint32
	SRAMInfo     []byte
	ModemInfo    []byte
	Region       string
}

// pad left-justifies s in an n-byte field, filling the rest with ASCII
// spaces and truncating s if it is already longer.
func pad(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	if len(s) > n {
		copy(b, s[:n])
	}
	return b
}

func padBytes(b []byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, b)
	return out
}

// Build renders cfg into the 256-byte header record with a placeholder
// zero checksum; the package-level Build patches the real value in
// afterward once the code/data region is known.
func (cfg Config) Build() []byte {
	var buf bytes.Buffer
	buf.Write(pad(cfg.SystemName, systemNameLen))
	buf.Write(pad(cfg.Copyright, copyrightLen))
	buf.Write(pad(cfg.DomesticName, domesticLen))
	buf.Write(pad(cfg.OverseasName, overseasLen))
	buf.Write(pad(cfg.Serial, serialLen))
	buf.Write([]byte{0, 0}) // checksum placeholder
	buf.Write(pad(cfg.IOSupport, ioSupportLen))
	writeBE32(&buf, cfg.ROMStart)
	writeBE32(&buf, cfg.ROMEnd)
	writeBE32(&buf, cfg.RAMStart)
	writeBE32(&buf, cfg.RAMEnd)
	buf.Write(padBytes(cfg.SRAMInfo, sramInfoLen))
	buf.Write(padBytes(cfg.ModemInfo, modemInfoLen))
	buf.Write(pad("", reservedLen))
	buf.Write(pad(cfg.Region, regionLen))
	out := buf.Bytes()
	if len(out) != HeaderSize {
		panic(fmt.Sprintf("rom: header builder produced %d bytes, want %d", len(out), HeaderSize))
	}
	return out
}

func writeBE32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// ParseHeader reads a 256-byte header record back into a Config, trimming
// the ASCII-space padding every textual field carries. Used by tests to
// check the round-trip testable property from spec.md §8.
func ParseHeader(b []byte) (Config, error) {
	if len(b) != HeaderSize {
		return Config{}, fmt.Errorf("rom: header must be exactly %d bytes, got %d", HeaderSize, len(b))
	}
	off := 0
	take := func(n int) []byte {
		s := b[off : off+n]
		off += n
		return s
	}
	cfg := Config{}
	cfg.SystemName = trimPad(take(systemNameLen))
	cfg.Copyright = trimPad(take(copyrightLen))
	cfg.DomesticName = trimPad(take(domesticLen))
	cfg.OverseasName = trimPad(take(overseasLen))
	cfg.Serial = trimPad(take(serialLen))
	off += checksumLen // checksum isn't part of Config's round-trip contract
	cfg.IOSupport = trimPad(take(ioSupportLen))
	cfg.ROMStart = binary.BigEndian.Uint32(take(romStartLen))
	cfg.ROMEnd = binary.BigEndian.Uint32(take(romEndLen))
	cfg.RAMStart = binary.BigEndian.Uint32(take(ramStartLen))
	cfg.RAMEnd = binary.BigEndian.Uint32(take(ramEndLen))
	cfg.SRAMInfo = trimPadBytes(take(sramInfoLen))
	cfg.ModemInfo = trimPadBytes(take(modemInfoLen))
	off += reservedLen
	cfg.Region = trimPad(take(regionLen))
	return cfg, nil
}

func trimPad(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

func trimPadBytes(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	if end == 0 {
		return nil
	}
	out := make([]byte, end)
	copy(out, b[:end])
	return out
}

// ChecksumOffset is the byte offset, within the header, of the 16-bit
// big-endian checksum field — relative to the start of the 256-byte
// header block (i.e. absolute offset 0x100+ChecksumOffset in the image).
const ChecksumOffset = systemNameLen + copyrightLen + domesticLen + overseasLen + serialLen

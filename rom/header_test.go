package rom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	cfg := Config{
		SystemName:   "SEGA MEGA DRIVE",
		Copyright:    "(C)TEST 2026.JUL",
		DomesticName: "SMDC TEST ROM",
		OverseasName: "SMDC TEST ROM",
		Serial:       "GM 00000000-00",
		IOSupport:    "J",
		ROMStart:     0x000000,
		ROMEnd:       0x07FFFF,
		RAMStart:     0xFF0000,
		RAMEnd:       0xFFFFFF,
		SRAMInfo:     []byte{0x00},
		ModemInfo:    nil,
		Region:       "JUE",
	}
	built := cfg.Build()
	require.Len(t, built, HeaderSize)

	got, err := ParseHeader(built)
	require.NoError(t, err)
	assert.Equal(t, cfg.SystemName, got.SystemName)
	assert.Equal(t, cfg.Copyright, got.Copyright)
	assert.Equal(t, cfg.DomesticName, got.DomesticName)
	assert.Equal(t, cfg.OverseasName, got.OverseasName)
	assert.Equal(t, cfg.Serial, got.Serial)
	assert.Equal(t, cfg.IOSupport, got.IOSupport)
	assert.Equal(t, cfg.ROMStart, got.ROMStart)
	assert.Equal(t, cfg.ROMEnd, got.ROMEnd)
	assert.Equal(t, cfg.RAMStart, got.RAMStart)
	assert.Equal(t, cfg.RAMEnd, got.RAMEnd)
	assert.Equal(t, cfg.Region, got.Region)
}

func TestChecksumCoversCodeOnwardOnly(t *testing.T) {
	image := make([]byte, VectorTableSize+HeaderSize+4)
	image[VectorTableSize+HeaderSize+0] = 0x00
	image[VectorTableSize+HeaderSize+1] = 0x01
	image[VectorTableSize+HeaderSize+2] = 0x00
	image[VectorTableSize+HeaderSize+3] = 0x02
	sum := Checksum(image)
	assert.Equal(t, uint16(0x0003), sum)
}

func TestBuildPatchesChecksum(t *testing.T) {
	cfg := Config{SystemName: "SEGA MEGA DRIVE"}
	code := []byte{0x4E, 0x71, 0x4E, 0x75}
	image := Build(cfg, 0x00FFE000, CodeBase, CodeBase, code)
	require.Len(t, image, VectorTableSize+HeaderSize+len(code))
	sum := Checksum(image)
	got := uint16(image[VectorTableSize+ChecksumOffset])<<8 | uint16(image[VectorTableSize+ChecksumOffset+1])
	assert.Equal(t, sum, got)
}

package m68k

import target "smdc/m68k"

// tmssHandshakeValue is the ASCII string "SEGA" (0x53454741) the TMSS
// boot ROM expects to see written to $A14000 before it will map cartridge
// space, per spec.md §4.2.
const tmssHandshakeValue = 0x53454741

const (
	tmssVersionReg = 0x00A10001
	tmssSegaReg    = 0x00A14000
	z80BusRequest  = 0x00A11100
	z80Reset       = 0x00A11200
	vdpControl     = vdpControlPort
	vdpData        = vdpDataPort
	workRAMStart   = 0x00FF0000
	workRAMSize    = 0x00010000
)

// entryStub builds the fixed _start routine every ROM image begins with:
// supervisor entry, TMSS handshake, Z80 bus request, work-RAM clear, data
// segment copy, VDP/PSG bring-up, and the drop to user mode before
// `JSR main`. Steps (a)-(k) correspond directly to spec.md §4.2's entry
// stub list.
func (g *Generator) entryStub(cfg StartConfig) []target.Inst {
	var out []target.Inst

	out = append(out, target.Lbl("_start"))

	// (a) supervisor mode, interrupts masked.
	out = append(out, target.I(target.MOVE, target.SizeWord, target.Imm32(0x2700), target.SR))

	// (b) TMSS handshake if the version register's low nibble is nonzero.
	out = append(out,
		target.I(target.MOVE, target.SizeByte, target.AbsLong(tmssVersionReg), target.Dn(0)),
		target.I(target.ANDI, target.SizeByte, target.Imm32(0x0F), target.Dn(0)),
		target.Bcc(target.CEQ, ".Lskip_tmss"),
		target.I(target.MOVE, target.SizeLong, target.Imm32(tmssHandshakeValue), target.AbsLong(tmssSegaReg)),
		target.Lbl(".Lskip_tmss"),
	)

	// (c) request the Z80 bus and wait for the bus grant.
	out = append(out,
		target.I(target.MOVE, target.SizeWord, target.Imm32(0x0100), target.AbsLong(z80BusRequest)),
		target.Lbl(".Lwait_z80_bus"),
		target.I(target.MOVE, target.SizeWord, target.AbsLong(z80BusRequest), target.Dn(0)),
		target.I(target.ANDI, target.SizeWord, target.Imm32(0x0100), target.Dn(0)),
		target.Bcc(target.CNE, ".Lwait_z80_bus"),
		target.I(target.MOVE, target.SizeWord, target.Imm32(0x0100), target.AbsLong(z80Reset)),
	)

	// (d) zero-fill the first 64 KB of work RAM.
	out = append(out,
		target.I(target.LEA, target.SizeLong, target.AbsLong(workRAMStart), target.An(0)),
		target.I(target.MOVE, target.SizeLong, target.Imm32(workRAMSize/4), target.Dn(0)),
		target.Lbl(".Lclear_ram_loop"),
		target.I(target.MOVE, target.SizeLong, target.Imm32(0), target.AnPostInc(0)),
		target.I(target.SUBQ, target.SizeLong, target.Imm32(1), target.Dn(0)),
		target.Bcc(target.CNE, ".Lclear_ram_loop"),
	)

	// (e) copy the initialized-data segment from ROM to RAM.
	out = append(out,
		target.I(target.LEA, target.SizeLong, target.Sym("__data_rom_start"), target.An(0)),
		target.I(target.LEA, target.SizeLong, target.Sym("__data_ram_start"), target.An(1)),
		target.I(target.LEA, target.SizeLong, target.Sym("__data_ram_end"), target.An(2)),
		target.Lbl(".Lcopy_data_loop"),
		// CMPA.L A2,A1 — compares an address register against <ea>.
		target.I(target.CMPA, target.SizeLong, target.An(2), target.An(1)),
		target.Bcc(target.CEQ, ".Lcopy_data_done"),
		target.I(target.MOVE, target.SizeLong, target.AnPostInc(0), target.AnPostInc(1)),
		target.Bra(".Lcopy_data_loop"),
		target.Lbl(".Lcopy_data_done"),
	)

	// (f) set A7 to the initial stack pointer.
	out = append(out, target.I(target.MOVE, target.SizeLong, target.Imm32(int32(cfg.InitialSP)), target.An(7)))

	// (g) program the VDP registers and clear VRAM.
	out = append(out, vdpInitSequence()...)

	// (h) install a minimal four-entry palette.
	out = append(out, paletteInitSequence()...)

	// (i) silence all PSG channels.
	out = append(out, psgSilenceSequence()...)

	// (j) drop to user mode and transfer control to main.
	out = append(out, target.I(target.MOVE, target.SizeWord, target.Imm32(0x2000), target.SR))
	out = append(out, target.Jsr(target.Sym("main")))

	// (k) loop forever if main returns.
	out = append(out, target.Lbl(".Lhalt"), target.Bra(".Lhalt"))

	return out
}

// vdpRegDefaults are the sixteen values written to VDP registers 0-15 to
// bring up a conventional 320x224, 64-color, plane-A-at-$C000 display
// mode before handing control to user code.
var vdpRegDefaults = [16]byte{
	0x04, 0x74, 0x30, 0x3C,
	0x07, 0x6C, 0x00, 0x00,
	0x00, 0x00, 0xFF, 0x08,
	0x81, 0x37, 0x00, 0x01,
}

func vdpInitSequence() []target.Inst {
	var out []target.Inst
	for i, v := range vdpRegDefaults {
		regCmd := int32(0x8000 | (i << 8) | int(v))
		out = append(out, target.I(target.MOVE, target.SizeWord, target.Imm32(regCmd), target.AbsLong(vdpControl)))
	}
	// Set up an autoincrement VRAM write at $0000 and clear all 64 KB.
	out = append(out,
		target.I(target.MOVE, target.SizeLong, target.Imm32(0x40000000), target.AbsLong(vdpControl)),
		target.I(target.MOVE, target.SizeLong, target.Imm32(0x8000), target.Dn(0)),
		target.Lbl(".Lclear_vram_loop"),
		target.I(target.MOVE, target.SizeWord, target.Imm32(0), target.AbsLong(vdpData)),
		target.I(target.SUBQ, target.SizeLong, target.Imm32(1), target.Dn(0)),
		target.Bcc(target.CNE, ".Lclear_vram_loop"),
	)
	return out
}

// paletteDefaults are four CRAM words: black, white, full red, and full
// green, enough to prove the display pipeline is alive.
var paletteDefaults = [4]int32{0x0000, 0x0EEE, 0x000E, 0x00E0}

func paletteInitSequence() []target.Inst {
	out := []target.Inst{
		target.I(target.MOVE, target.SizeLong, target.Imm32(0xC0000000), target.AbsLong(vdpControl)),
	}
	for _, c := range paletteDefaults {
		out = append(out, target.I(target.MOVE, target.SizeWord, target.Imm32(c), target.AbsLong(vdpData)))
	}
	return out
}

// psgChannelSilence is the tone-off attenuation byte (0x9F/0xBF/0xDF/0xFF
// select channel 0-3's volume latch, data 0xF = silent) for all four PSG
// channels (three tone, one noise).
var psgChannelSilence = [4]int32{0x9F, 0xBF, 0xDF, 0xFF}

func psgSilenceSequence() []target.Inst {
	var out []target.Inst
	for _, v := range psgChannelSilence {
		out = append(out, target.I(target.MOVE, target.SizeByte, target.Imm32(v), target.AbsLong(0x00C00011)))
	}
	return out
}

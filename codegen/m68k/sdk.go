package m68k

import (
	"smdc/diag"
	"smdc/ir"
	target "smdc/m68k"
)

// inlineShape emits a fixed instruction sequence for an inline SDK call at
// the call site. Arguments are already loaded into D0-D3 by the caller
// (lowerInlineCall); the shape only needs the argument list to decide how
// many of D0-D3 it actually consumes.
type inlineShape func(args []ir.Value) []target.Inst

// vdpDataPort and vdpControlPort are the Mega Drive's memory-mapped VDP
// port addresses.
const (
	vdpDataPort    = 0x00C00000
	vdpControlPort = 0x00C00004
)

// inlineRegistry maps SDK names the generator emits directly at the call
// site, bypassing JSR/ADDQ cleanup entirely — these are small enough that
// a call/return pair would cost more than the body.
var inlineRegistry = map[string]inlineShape{
	// vdp_write_data(word) -> MOVE.W D0,$C00000
	"vdp_write_data": func(args []ir.Value) []target.Inst {
		return []target.Inst{
			target.I(target.MOVE, target.SizeWord, target.Dn(0), target.AbsLong(vdpDataPort)),
		}
	},
	// vdp_write_control(long) -> MOVE.L D0,$C00004
	"vdp_write_control": func(args []ir.Value) []target.Inst {
		return []target.Inst{
			target.I(target.MOVE, target.SizeLong, target.Dn(0), target.AbsLong(vdpControlPort)),
		}
	},
	// wait_vblank() -> poll the VDP status register's vblank bit (bit 3)
	// until it is set.
	"wait_vblank": func(args []ir.Value) []target.Inst {
		return []target.Inst{
			target.Lbl(".Lwait_vblank_poll"),
			target.I(target.MOVE, target.SizeWord, target.AbsLong(vdpControlPort), target.Dn(0)),
			target.I(target.ANDI, target.SizeWord, target.Imm32(0x0008), target.Dn(0)),
			target.Bcc(target.CEQ, ".Lwait_vblank_poll"),
		}
	},
}

func sdkInline(name string) (inlineShape, bool) {
	s, ok := inlineRegistry[name]
	return s, ok
}

// libraryRegistry maps SDK names too large to inline. Each entry's Body
// builder and Deps are resolved transitively by Generator.Generate: a
// library body may itself call other SDK functions, which also get
// emitted once.
var libraryRegistry = map[string]struct {
	Deps []string
	Body func() []target.Inst
}{
	"memcpy": {
		Deps: nil,
		Body: func() []target.Inst {
			// memcpy(dst, src, n): A0=dst, A1=src, D0=n, byte copy loop
			// using the standard calling convention's argument slots.
			return []target.Inst{
				target.Lbl("memcpy"),
				target.Link(6, 0),
				target.I(target.MOVE, target.SizeLong, target.Disp16(8, 6), target.An(0)),
				target.I(target.MOVE, target.SizeLong, target.Disp16(12, 6), target.An(1)),
				target.I(target.MOVE, target.SizeLong, target.Disp16(16, 6), target.Dn(0)),
				target.Lbl(".Lmemcpy_loop"),
				target.I(target.MOVE, target.SizeWord, target.Dn(0), target.Dn(0)),
				target.Bcc(target.CEQ, ".Lmemcpy_done"),
				target.I(target.MOVE, target.SizeByte, target.AnPostInc(1), target.AnPostInc(0)),
				target.I(target.SUBQ, target.SizeLong, target.Imm32(1), target.Dn(0)),
				target.Bra(".Lmemcpy_loop"),
				target.Lbl(".Lmemcpy_done"),
				target.Unlk(6),
				target.Rts(),
			}
		},
	},
	"memset": {
		Deps: nil,
		Body: func() []target.Inst {
			// memset(dst, byteVal, n): A0=dst, D1=byteVal, D0=n
			return []target.Inst{
				target.Lbl("memset"),
				target.Link(6, 0),
				target.I(target.MOVE, target.SizeLong, target.Disp16(8, 6), target.An(0)),
				target.I(target.MOVE, target.SizeLong, target.Disp16(12, 6), target.Dn(1)),
				target.I(target.MOVE, target.SizeLong, target.Disp16(16, 6), target.Dn(0)),
				target.Lbl(".Lmemset_loop"),
				target.I(target.MOVE, target.SizeWord, target.Dn(0), target.Dn(0)),
				target.Bcc(target.CEQ, ".Lmemset_done"),
				target.I(target.MOVE, target.SizeByte, target.Dn(1), target.AnPostInc(0)),
				target.I(target.SUBQ, target.SizeLong, target.Imm32(1), target.Dn(0)),
				target.Bra(".Lmemset_loop"),
				target.Lbl(".Lmemset_done"),
				target.Unlk(6),
				target.Rts(),
			}
		},
	},
	// psg_tone(channel, period) programs one of the PSG's three tone
	// generators via the sound chip's control port, using a small static
	// per-channel register-select table — the "operator offset table" the
	// SDK-call lowering section calls for.
	"psg_tone": {
		Deps: []string{"memcpy"},
		Body: func() []target.Inst {
			return []target.Inst{
				target.Lbl("psg_tone"),
				target.Link(6, 0),
				target.I(target.MOVE, target.SizeLong, target.Disp16(8, 6), target.Dn(0)),
				target.I(target.MOVE, target.SizeLong, target.Disp16(12, 6), target.Dn(1)),
				target.I(target.LEA, target.SizeLong, target.Sym("__psg_channel_select"), target.An(0)),
				target.I(target.MOVE, target.SizeByte, target.Indexed(0, 0, 0), target.AbsLong(0x00C00011)),
				target.I(target.MOVE, target.SizeWord, target.Dn(1), target.AbsLong(0x00C00011)),
				target.Unlk(6),
				target.Rts(),
				target.Lbl("__psg_channel_select"),
				target.Bytes(psgChannelSelectTable...),
			}
		},
	},
}

func sdkLibrary(name string) (bool, bool) {
	_, ok := libraryRegistry[name]
	return ok, ok
}

func sdkLibraryBody(name string) ([]target.Inst, []string, error) {
	entry, ok := libraryRegistry[name]
	if !ok {
		return nil, nil, diag.New(diag.KindUndefinedIdentifier, diag.Span{}, "codegen: unknown SDK function %q", name)
	}
	return entry.Body(), entry.Deps, nil
}

// psgChannelSelectTable is the static data psg_tone indexes by channel
// number to find the PSG latch/data byte for that channel's tone
// register.
var psgChannelSelectTable = []byte{0x80, 0xA0, 0xC0}

//go:build ignore

// make-fixtures writes a small patch object and firmware image for trying
// the hpgen commands by hand:
//
//	go run tools/make-fixtures.go -dir /tmp/hpgen
//	hpgen generate -p /tmp/hpgen/patch.o -f /tmp/hpgen/firmware.elf -o /tmp/hpgen/patch.bin
package main

import (
	"debug/elf"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/muurk/hpgen/internal/elftest"
)

func main() {
	dir := flag.String("dir", ".", "Output directory")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	files := map[string][]byte{
		"firmware.elf": firmware(),
		"patch.o":      patch(),
	}
	for name, data := range files {
		path := filepath.Join(*dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
	}
}

func firmware() []byte {
	b := elftest.NewExecutable()
	text := b.AddTextAt(".text", 0x08000000, elftest.Filler(0x4000))
	for _, s := range []struct {
		name string
		addr uint32
	}{
		{"main_loop", 0x08001001},
		{"uart_write", 0x08002001},
		{"_ZN6sensor4readEv", 0x08003001},
	} {
		b.AddSymbol(elftest.Symbol{Name: s.name, Value: s.addr, Size: 0x100, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: text})
	}
	return b.Bytes()
}

// patch redirects main_loop+0x4 into a stub that calls uart_write and
// branches back, and replaces the first 8 bytes of sensor::read.
func patch() []byte {
	b := elftest.NewObject()

	redirect := b.AddText(elftest.FunctionSection("main_loop", 4, "redirect", 0x10), make([]byte, 48))
	b.AddSymbol(elftest.Symbol{Name: "hotpatch_original_code_main_loop", Value: 0x00, Section: redirect})
	b.AddSymbol(elftest.Symbol{Name: "hotpatch_branch_to_orig_main_loop", Value: 0x0C, Section: redirect})
	b.AddSymbol(elftest.Symbol{Name: "hotpatch_external_function_call_main_loop", Value: 0x20, Section: redirect})
	uart := b.AddSymbol(elftest.Symbol{Name: "uart_write", Bind: elf.STB_GLOBAL, Section: elftest.Undefined})
	b.AddRelocations(redirect,
		elftest.Rel{Offset: 0x08, Symbol: uart, Type: elf.R_ARM_THM_PC22},
		elftest.Rel{Offset: 0x24, Symbol: uart, Type: elf.R_ARM_ABS32},
	)

	b.AddText(elftest.FunctionSection("_ZN6sensor4readEv", 0, "replacement", 0),
		[]byte{0x00, 0x20, 0x70, 0x47, 0x00, 0xBF, 0x00, 0xBF})

	return b.Bytes()
}

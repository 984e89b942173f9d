// Command smdc is the self-hosted Mega Drive compiler's CLI entry point:
// one cobra command binding the flags spec.md §6 names onto
// internal/driver.Run. Grounded on the teacher's cmd/rush/main.go
// flag-then-execute shape, upgraded from the standard library's flag
// package to github.com/spf13/cobra+pflag+viper — the combination the
// wider retrieval pack's CLI-fronted toolchains (ajroetker-goat,
// Manu343726-cucaracha, keurnel-assembler) converge on.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"smdc/diag"
	"smdc/internal/driver"
)

var (
	flagOutput       string
	flagLang         string
	flagOutputType   string
	flagOptLevel     int
	flagDebugInfo    bool
	flagVerbose      bool
	flagDumpTokens   bool
	flagDumpAST      bool
	flagDumpIR       bool
	flagDumpMIR      bool
	flagDomesticName string
	flagOverseasName string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smdc <input>",
		Short:         "Compile a C89-subset or Rust-like source file to M68000 Mega Drive code",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&flagOutput, "output", "o", "", "output file path")
	flags.StringVar(&flagLang, "lang", "auto", "source language: c, rust, or auto")
	flags.StringVar(&flagOutputType, "output-type", "rom", "output kind: asm or rom")
	flags.IntVarP(&flagOptLevel, "optimize", "O", 0, "optimization level 0-3")
	flags.BoolVarP(&flagDebugInfo, "debug-info", "g", false, "emit debug info")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	flags.BoolVar(&flagDumpTokens, "dump-tokens", false, "print the lexed token stream")
	flags.BoolVar(&flagDumpAST, "dump-ast", false, "print the parsed AST")
	flags.BoolVar(&flagDumpIR, "dump-ir", false, "print the shared IR")
	flags.BoolVar(&flagDumpMIR, "dump-mir", false, "print the Rust-like front-end's MIR")
	flags.StringVar(&flagDomesticName, "domestic-name", "", "ROM header domestic name field")
	flags.StringVar(&flagOverseasName, "overseas-name", "", "ROM header overseas name field")

	viper.SetEnvPrefix("SMDC")
	viper.AutomaticEnv()
	_ = viper.BindPFlags(flags)

	return cmd
}

func runCompile(input string) error {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if flagVerbose || viper.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}

	opts := driver.Options{
		Input:        input,
		Output:       viper.GetString("output"),
		Lang:         driver.Language(viper.GetString("lang")),
		OutputType:   driver.OutputType(viper.GetString("output-type")),
		OptLevel:     viper.GetInt("optimize"),
		DebugInfo:    viper.GetBool("debug-info"),
		Verbose:      flagVerbose,
		DumpTokens:   flagDumpTokens,
		DumpAST:      flagDumpAST,
		DumpIR:       flagDumpIR,
		DumpMIR:      flagDumpMIR,
		DomesticName: viper.GetString("domestic-name"),
		OverseasName: viper.GetString("overseas-name"),
	}

	return driver.Run(opts, log)
}

// reportAndExit renders err as the single human-readable stderr line
// spec.md §7 mandates, then exits with the matching code: 1 for any
// compilation or I/O error, 0 on success (the caller never invokes this
// on a nil error).
func reportAndExit(err error) {
	var derr *diag.Error
	if errors.As(err, &derr) {
		fmt.Fprintln(os.Stderr, color.RedString("error: %s", derr.Error()))
	} else {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
	}
	os.Exit(1)
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		reportAndExit(err)
	}
}

package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seal9055/isa-simulator/asm"
	"github.com/seal9055/isa-simulator/sim"
)

// newStepCmd is the single-cycle debug REPL, modeled on the teacher's
// ExecProgramDebugMode/RunProgramDebugMode ("n"/"r"/"b <line>") loop in
// vm/exec.go and vm/run.go.
func newStepCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step <source.asm>",
		Short: "Interactively step the simulator one cycle at a time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			prog, err := asm.Assemble(string(src))
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}

			s := sim.New(cfg.CacheEnabled, cfg.Pipelining, rand.New(rand.NewSource(1)), sim.WithOutput(cmd.OutOrStdout()))
			if err := s.LoadProgram(prog); err != nil {
				return fmt.Errorf("load: %w", err)
			}

			return runStepREPL(s, cmd)
		},
	}
	return cmd
}

func runStepREPL(s *sim.Simulator, cmd *cobra.Command) error {
	reader := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	for s.Online {
		fmt.Fprint(out, "(step) ")
		if !reader.Scan() {
			return nil
		}
		line := strings.TrimSpace(reader.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "n", "next":
			if err := s.Step(); err != nil {
				fmt.Fprintf(out, "halted: %v\n", err)
			}
			s.DebugPrint()
			s.DebugPrintPipeline()
		case "r", "run":
			if err := s.Run(0); err != nil {
				fmt.Fprintf(out, "halted: %v\n", err)
			}
			s.DebugPrint()
		case "b":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: b <addr>")
				continue
			}
			addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32)
			if err != nil {
				fmt.Fprintf(out, "bad address: %v\n", err)
				continue
			}
			s.SetBreakpoint(uint32(addr))
		case "q", "quit":
			return nil
		default:
			fmt.Fprintln(out, "commands: n(ext), r(un), b <addr>, q(uit)")
		}
	}
	return nil
}

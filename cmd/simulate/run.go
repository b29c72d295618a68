package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/seal9055/isa-simulator/asm"
	"github.com/seal9055/isa-simulator/sim"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	var noCache, noPipelining bool
	cmd := &cobra.Command{
		Use:   "run <source.asm>",
		Short: "Assemble and run a program to completion or breakpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if noCache {
				cfg.CacheEnabled = false
			}
			if noPipelining {
				cfg.Pipelining = false
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
			for _, bp := range cfg.Breakpoints {
				s.SetBreakpoint(bp)
			}
			if err := s.LoadProgram(prog); err != nil {
				return fmt.Errorf("load: %w", err)
			}

			if err := s.Run(cfg.MaxSteps); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "halted: %v\n", err)
			}
			s.DebugPrint()
			fmt.Fprintf(cmd.OutOrStdout(), "stats: %+v\n", s.Stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the data cache")
	cmd.Flags().BoolVar(&noPipelining, "no-pipelining", false, "disable pipelining (single instruction in flight)")
	return cmd
}

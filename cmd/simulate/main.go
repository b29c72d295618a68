// Command simulate is the process entry point for the ISA simulator: a
// thin cobra CLI wired to package sim, following the teacher's main.go
// shape (flag-driven file argument) generalized to cobra subcommands per
// the domain-stack wiring in SPEC_FULL.md §3. The interactive debug GUI
// and the process bootstrap proper are out of scope (spec.md §1); this
// command is the minimal driver that loads a program and steps it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seal9055/isa-simulator/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:   "simulate",
		Short: "Cycle-accurate simulator for the guest RISC-style ISA",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a TOML run configuration")

	root.AddCommand(newRunCmd(&cfgPath))
	root.AddCommand(newStepCmd(&cfgPath))
	root.AddCommand(newDisasmCmd())
	return root
}

func loadConfig(path string) (config.Config, error) {
	return config.Load(path)
}

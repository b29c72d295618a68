package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/seal9055/isa-simulator/asm"
	"github.com/seal9055/isa-simulator/isa"
)

// newDisasmCmd prints the decoded instruction stream of every assembled
// section, modeled on the teacher's formatInstructionStr/printProgram.
func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <source.asm>",
		Short: "Assemble and print the decoded instruction stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			prog, err := asm.Assemble(string(src))
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, section := range prog.Sections {
				fmt.Fprintf(out, "%s @ 0x%08x\n", section.Name, section.LoadAddr)
				addrs := make([]uint32, 0, len(section.Words))
				for a := range section.Words {
					addrs = append(addrs, a)
				}
				sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
				for _, a := range addrs {
					instr := isa.Decode(section.Words[a])
					fmt.Fprintf(out, "  0x%08x: %s\n", a, instr)
				}
			}
			return nil
		},
	}
}

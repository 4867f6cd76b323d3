// Command simctl inspects the text files a sim run produces: trace lines,
// per-core statistics, and register dumps, pretty-printed for a human
// reading a run after the fact.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simctl",
		Short: "Inspect mesisim coretrace/bustrace/stats/regout files",
	}

	rootCmd.AddCommand(newTraceCmd(), newStatsCmd(), newRegsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTraceCmd() *cobra.Command {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a coretrace or bustrace file",
	}

	showCmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print each trace line with its cycle number highlighted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("simctl: open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			scanner := bufio.NewScanner(f)
			n := 0
			for scanner.Scan() {
				fields := strings.Fields(scanner.Text())
				if len(fields) == 0 {
					continue
				}
				fmt.Printf("cycle %-8s %s\n", fields[0], strings.Join(fields[1:], " "))
				n++
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("simctl: read %s: %w", args[0], err)
			}
			fmt.Printf("%d lines\n", n)
			return nil
		},
	}

	traceCmd.AddCommand(showCmd)
	return traceCmd
}

func newStatsCmd() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Inspect a stats{i} file",
	}

	showCmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print each name/value counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("simctl: open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				fields := strings.Fields(scanner.Text())
				if len(fields) != 2 {
					continue
				}
				fmt.Printf("  %-14s %s\n", fields[0], fields[1])
			}
			return scanner.Err()
		},
	}

	statsCmd.AddCommand(showCmd)
	return statsCmd
}

func newRegsCmd() *cobra.Command {
	regsCmd := &cobra.Command{
		Use:   "regs",
		Short: "Inspect a regout{i} file",
	}

	showCmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print R2..R15 with register names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("simctl: open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			scanner := bufio.NewScanner(f)
			reg := 2
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				fmt.Printf("  R%-3d %s\n", reg, line)
				reg++
			}
			return scanner.Err()
		},
	}

	regsCmd.AddCommand(showCmd)
	return regsCmd
}

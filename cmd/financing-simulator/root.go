package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "financing-simulator",
		Short: "Loan amortization and effective cost simulator",
		Long: `financing-simulator builds payment schedules for fixed installment (Price)
and constant amortization (SAC) loans, folds in the transaction tax and
solves for the effective cost rate.

Commands:
  simulate - run the simulations of a configuration file
  serve    - expose the simulator over HTTP
  version  - print build information`,
		SilenceUsage: true,
	}

	root.AddCommand(newSimulateCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())

	return root
}

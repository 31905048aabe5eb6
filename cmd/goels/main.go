package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.3.0"

	cfgPath string
	useSim  bool
)

func main() {
	root := &cobra.Command{
		Use:   "goels",
		Short: "Electronic lead screw motion controller",
		Long: "goels drives a lathe turning attachment: two step/dir axes\n" +
			"synchronized to a spindle encoder, with manual pulse generator\n" +
			"jogging and an interactive operator console.",
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the controller and operator console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	runCmd.Flags().BoolVar(&useSim, "sim", false, "use the simulated hardware backend")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("goels %s\n", version)
		},
	}

	root.AddCommand(runCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

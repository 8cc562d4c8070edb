package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	clientConfig
	reload bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine liveness and version",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	addClientFlags(statusCmd, &statusFlags.clientConfig)
	statusCmd.Flags().BoolVar(&statusFlags.reload, "reload", false, "push the current configuration before reporting")
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := statusFlags.newClient()
	if err != nil {
		return err
	}

	if statusFlags.reload {
		if err := c.EngineReload(); err != nil {
			return err
		}
		fmt.Println("Configuration pushed.")
	}

	st, err := c.EngineStatus()
	if err != nil {
		return err
	}

	if !st.Running {
		fmt.Println("Engine: not running")
		if st.Error != "" {
			fmt.Printf("Error:  %s\n", st.Error)
		}
		return nil
	}

	fmt.Println("Engine: running")
	if st.Version != "" {
		fmt.Printf("Version: %s\n", st.Version)
	}
	if st.UptimeSeconds > 0 {
		fmt.Printf("Uptime:  %s\n", (time.Duration(st.UptimeSeconds) * time.Second).String())
	}
	return nil
}

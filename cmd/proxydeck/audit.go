package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var auditFlags struct {
	clientConfig
	all bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the administrative audit trail",
	RunE:  runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	addClientFlags(auditCmd, &auditFlags.clientConfig)
	auditCmd.Flags().BoolVar(&auditFlags.all, "all", false, "show the full trail instead of recent entries")
}

func runAudit(cmd *cobra.Command, args []string) error {
	c, err := auditFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.ListAudit(auditFlags.all)
	if err != nil {
		return err
	}
	if len(resp.Entries) == 0 {
		fmt.Println("No audit entries found.")
		return nil
	}

	fmt.Printf("%-19s  %-8s  %-12s  %-10s  %-20s  %s\n", "TIME", "ACTION", "ENTITY", "ENTITY ID", "ACTOR", "CHANGES")
	for _, e := range resp.Entries {
		createdAt, _ := time.Parse(time.RFC3339, e.CreatedAt)
		actor := "system"
		if e.UserName != nil {
			actor = *e.UserName
		}
		entityID := "-"
		if e.EntityID != nil {
			entityID = fmt.Sprintf("%d", *e.EntityID)
		}
		fmt.Printf("%-19s  %-8s  %-12s  %-10s  %-20s  %s\n",
			createdAt.Format("2006-01-02 15:04:05"), e.ActionType, e.EntityType, entityID, actor, e.Changes)
	}
	return nil
}

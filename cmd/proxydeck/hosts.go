package main

import (
	"fmt"
	"strconv"

	"github.com/rkershaw/proxydeck/internal/api"
	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage proxy hosts",
}

var hostsListFlags struct {
	clientConfig
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all proxy hosts with certificate status",
	RunE:  runHostsList,
}

var hostsCreateFlags struct {
	clientConfig
	domain   string
	target   string
	port     int
	proto    string
	ssl      bool
	forceSSL bool
	authUser string
	authPass string
	disabled bool
	cacheOn  bool
}

var hostsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a proxy host",
	RunE:  runHostsCreate,
}

var hostsDeleteFlags struct {
	clientConfig
}

var hostsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a proxy host",
	Args:  cobra.ExactArgs(1),
	RunE:  runHostsDelete,
}

var hostsEnableFlags struct {
	clientConfig
}

var hostsEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a proxy host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHostsToggle(&hostsEnableFlags.clientConfig, args[0], true)
	},
}

var hostsDisableFlags struct {
	clientConfig
}

var hostsDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a proxy host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHostsToggle(&hostsDisableFlags.clientConfig, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(hostsCmd)
	hostsCmd.AddCommand(hostsListCmd, hostsCreateCmd, hostsDeleteCmd, hostsEnableCmd, hostsDisableCmd)

	addClientFlags(hostsListCmd, &hostsListFlags.clientConfig)
	addClientFlags(hostsDeleteCmd, &hostsDeleteFlags.clientConfig)
	addClientFlags(hostsEnableCmd, &hostsEnableFlags.clientConfig)
	addClientFlags(hostsDisableCmd, &hostsDisableFlags.clientConfig)

	addClientFlags(hostsCreateCmd, &hostsCreateFlags.clientConfig)
	hostsCreateCmd.Flags().StringVar(&hostsCreateFlags.domain, "domain", "", "domain name (required)")
	hostsCreateCmd.Flags().StringVar(&hostsCreateFlags.target, "target", "", "upstream host or IP (required)")
	hostsCreateCmd.Flags().IntVar(&hostsCreateFlags.port, "port", 80, "upstream port")
	hostsCreateCmd.Flags().StringVar(&hostsCreateFlags.proto, "proto", "http", "upstream protocol (http|https|fastcgi)")
	hostsCreateCmd.Flags().BoolVar(&hostsCreateFlags.ssl, "ssl", false, "enable TLS termination")
	hostsCreateCmd.Flags().BoolVar(&hostsCreateFlags.forceSSL, "force-ssl", false, "redirect HTTP to HTTPS")
	hostsCreateCmd.Flags().StringVar(&hostsCreateFlags.authUser, "auth-user", "", "basic auth username")
	hostsCreateCmd.Flags().StringVar(&hostsCreateFlags.authPass, "auth-pass", "", "basic auth password")
	hostsCreateCmd.Flags().BoolVar(&hostsCreateFlags.disabled, "disabled", false, "create the host disabled")
	hostsCreateCmd.Flags().BoolVar(&hostsCreateFlags.cacheOn, "cache", false, "enable response caching")
	_ = hostsCreateCmd.MarkFlagRequired("domain")
	_ = hostsCreateCmd.MarkFlagRequired("target")
}

func runHostsList(cmd *cobra.Command, args []string) error {
	c, err := hostsListFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.ListHosts()
	if err != nil {
		return err
	}
	if len(resp.Hosts) == 0 {
		fmt.Println("No proxy hosts found.")
		return nil
	}

	fmt.Printf("%-5s  %-30s  %-26s  %-8s  %-8s  %s\n", "ID", "DOMAIN", "UPSTREAM", "SSL", "ENABLED", "CERT")
	for _, h := range resp.Hosts {
		upstream := fmt.Sprintf("%s://%s:%d", h.TargetProto, h.TargetHost, h.TargetPort)
		cert := "-"
		if h.Certificate != nil {
			switch {
			case h.Certificate.Error != nil:
				cert = "error"
			case h.Certificate.DaysRemaining != nil:
				cert = fmt.Sprintf("%dd left", *h.Certificate.DaysRemaining)
			case h.Certificate.IsValid:
				cert = "valid"
			default:
				cert = "invalid"
			}
		}
		fmt.Printf("%-5d  %-30s  %-26s  %-8t  %-8t  %s\n", h.ID, h.Domain, upstream, h.SSLEnabled, h.Enabled, cert)
	}
	return nil
}

func runHostsCreate(cmd *cobra.Command, args []string) error {
	c, err := hostsCreateFlags.newClient()
	if err != nil {
		return err
	}

	enabled := !hostsCreateFlags.disabled
	req := api.HostRequest{
		Domain:            hostsCreateFlags.domain,
		TargetHost:        hostsCreateFlags.target,
		TargetPort:        hostsCreateFlags.port,
		TargetProto:       hostsCreateFlags.proto,
		SSLEnabled:        hostsCreateFlags.ssl,
		ForceSSL:          hostsCreateFlags.forceSSL,
		Enabled:           &enabled,
		CacheEnabled:      hostsCreateFlags.cacheOn,
		BasicAuthEnabled:  hostsCreateFlags.authUser != "",
		BasicAuthUser:     hostsCreateFlags.authUser,
		BasicAuthPassword: hostsCreateFlags.authPass,
	}

	h, err := c.CreateHost(req)
	if err != nil {
		return err
	}
	fmt.Printf("Created host %d: %s -> %s://%s:%d\n", h.ID, h.Domain, h.TargetProto, h.TargetHost, h.TargetPort)
	return nil
}

func runHostsDelete(cmd *cobra.Command, args []string) error {
	c, err := hostsDeleteFlags.newClient()
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid host id: %s", args[0])
	}
	if err := c.DeleteHost(id); err != nil {
		return err
	}
	fmt.Printf("Deleted host %d\n", id)
	return nil
}

func runHostsToggle(cfg *clientConfig, arg string, enabled bool) error {
	c, err := cfg.newClient()
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid host id: %s", arg)
	}
	h, err := c.SetHostEnabled(id, enabled)
	if err != nil {
		return err
	}
	state := "disabled"
	if h.Enabled {
		state = "enabled"
	}
	fmt.Printf("Host %d (%s) is now %s\n", h.ID, h.Domain, state)
	return nil
}

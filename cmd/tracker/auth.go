package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

func (c *cli) loginCmd() *cobra.Command {
	var req tracker.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a tenant",
		Example: `  tracker login --email ada@acme.com --password secret --tenant acme`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := c.app.Auth()
			defer auth.Close()
			_, err := auth.Login(cmd.Context(), req)
			return err
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.TenantSubdomain, "tenant", "", "tenant subdomain")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var req tracker.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account in an existing tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := c.app.Auth()
			defer auth.Close()
			_, err := auth.Register(cmd.Context(), req)
			return err
		},
	}
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.TenantSubdomain, "tenant", "", "tenant subdomain")
	for _, f := range []string{"name", "email", "password", "tenant"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (c *cli) registerTenantCmd() *cobra.Command {
	var req tracker.RegisterTenantRequest
	cmd := &cobra.Command{
		Use:   "register-tenant",
		Short: "Create an organization and its administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := c.app.Auth()
			defer auth.Close()
			_, err := auth.RegisterTenant(cmd.Context(), req)
			return err
		},
	}
	cmd.Flags().StringVar(&req.TenantName, "name", "", "organization name")
	cmd.Flags().StringVar(&req.Subdomain, "subdomain", "", "organization subdomain")
	cmd.Flags().StringVar(&req.AdminFullName, "admin-name", "", "administrator full name")
	cmd.Flags().StringVar(&req.AdminEmail, "admin-email", "", "administrator email")
	cmd.Flags().StringVar(&req.AdminPassword, "admin-password", "", "administrator password")
	for _, f := range []string{"name", "subdomain", "admin-name", "admin-email", "admin-password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := c.app.Auth()
			defer auth.Close()
			_, err := auth.Logout(cmd.Context())
			return err
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderSession(c.app.CurrentSession()))
			return nil
		},
	}
}

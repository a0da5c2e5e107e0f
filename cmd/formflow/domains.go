package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/platform"
)

var dbPath string

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Manage verified domains in the reference backend",
}

var domainsVerifyCmd = &cobra.Command{
	Use:   "verify <form-id> <domain>",
	Short: "Mark a domain as verified for a form",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(cmd *cobra.Command, store *platform.Store, args []string) error {
		if err := store.VerifyDomain(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s verified for %s\n", args[1], args[0])
		return nil
	}),
}

var domainsRevokeCmd = &cobra.Command{
	Use:   "revoke <form-id> <domain>",
	Short: "Remove a verified domain",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(cmd *cobra.Command, store *platform.Store, args []string) error {
		return store.RevokeDomain(cmd.Context(), args[0], args[1])
	}),
}

var domainsListCmd = &cobra.Command{
	Use:   "list <form-id>",
	Short: "List the verified domains of a form",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store *platform.Store, args []string) error {
		domains, err := store.VerifiedDomains(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, domain := range domains {
			fmt.Fprintln(cmd.OutOrStdout(), domain)
		}
		return nil
	}),
}

var submissionsCmd = &cobra.Command{
	Use:   "submissions <form-id>",
	Short: "Print the stored submissions of a form as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store *platform.Store, args []string) error {
		subs, err := store.Submissions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(subs)
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{domainsCmd, submissionsCmd} {
		cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (FORMFLOW_DB_PATH)")
	}
	domainsCmd.AddCommand(domainsVerifyCmd, domainsRevokeCmd, domainsListCmd)
}

func withStore(fn func(cmd *cobra.Command, store *platform.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		override(&cfg.DBPath, dbPath)
		store, err := platform.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, store, args)
	}
}

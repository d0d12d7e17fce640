package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/storage"
	"github.com/rohankatakam/codegraph/internal/tenant"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage the registry of repositories the engine tracks",
}

var repoRegisterCmd = &cobra.Command{
	Use:   "register <path>",
	Short: "Register a repository path with the tenant registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		hash := tenant.DirectoryHash(path)

		store, err := openRegistryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		existing, err := store.ListRepos(ctx)
		if err != nil {
			return err
		}
		var nextID uint32 = 1
		for _, r := range existing {
			if r.Path == path {
				return fmt.Errorf("repo already registered with id %d", r.ID)
			}
			if r.ID >= nextID {
				nextID = r.ID + 1
			}
		}

		record := &storage.RepoRecord{
			ID:           nextID,
			Path:         path,
			Hash:         hash,
			RegisteredAt: time.Now(),
			LastSyncedAt: time.Now(),
		}
		if err := store.SaveRepo(ctx, record); err != nil {
			return err
		}
		fmt.Printf("registered repo %d: %s (hash %s)\n", record.ID, record.Path, record.Hash)
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRegistryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		repos, err := store.ListRepos(context.Background())
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			fmt.Println("no repos registered")
			return nil
		}
		for _, r := range repos {
			fmt.Printf("%d\t%s\t%s\n", r.ID, r.Path, r.Hash)
		}
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a registered repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id uint32
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid repo id %q: %w", args[0], err)
		}

		store, err := openRegistryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteRepo(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("removed repo %d\n", id)
		return nil
	},
}

func init() {
	repoCmd.AddCommand(repoRegisterCmd)
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoRemoveCmd)
}

func openRegistryStore() (storage.RegistryStore, error) {
	boltPath := filepath.Join(filepath.Dir(cfg.Paths.SocketFile), "registry.db")
	return storage.Open(cfg.Registry.Backend, cfg.Registry.DSN, boltPath, logger)
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/sessiongate/sessiongate/credstore"
	"github.com/sessiongate/sessiongate/credstore/postgres"
	"github.com/sessiongate/sessiongate/password"
	"github.com/spf13/cobra"
)

func newAddUserCommand() *cobra.Command {
	var (
		databaseURL string
		email       string
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a login in the credential database",
		Long:  "Create a login in the credential database. The password is read from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDBConfig()
			if err != nil {
				return err
			}
			url, err := resolveDatabaseURL(databaseURL, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd)
			if err != nil {
				return err
			}
			hash, err := hashPassword(pw)
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer db.Close()
			store, err := postgres.New(cmd.Context(), db)
			if err != nil {
				return err
			}
			defer store.Close()

			cred, err := store.CreateCredential(cmd.Context(), credstore.Credential{
				Identifier:   email,
				PasswordHash: hash,
			})
			if errors.Is(err, credstore.ErrDuplicate) {
				return fmt.Errorf("user %q already exists", strings.TrimSpace(email))
			}
			if err != nil {
				return err
			}
			cmd.Printf("Created user %s (id %s)\n", cred.Identifier, cred.Subject)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL. Env: SESSIONGATE_DATABASE_URL.")
	cmd.Flags().StringVar(&email, "email", "", "Login email address.")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("read password from stdin: no input")
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password must not be empty")
	}
	return pw, nil
}

func hashPassword(pw string) (string, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return "", err
	}
	hash, err := hasher.Hash(pw)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

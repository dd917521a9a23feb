package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/MrEthical07/folioauth"
	"github.com/MrEthical07/folioauth/internal/stores"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminSetActiveCmd("disable", false))
	cmd.AddCommand(newAdminSetActiveCmd("enable", true))

	return cmd
}

// ---------- admin create ----------

type adminCreateOpts struct {
	username string
	email    string
	password string
	role     string
}

func newAdminCreateCmd() *cobra.Command {
	var opts adminCreateOpts

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user",
		Example: `  folioauth admin create --username admin --email admin@example.com
  folioauth admin create --username editor --email ed@example.com --role editor --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if opts.password == "" {
				pw, err := promptPassword(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				opts.password = pw
			}
			rt, err := openRuntime(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := createAdmin(ctx, rt.engine, stores.NewAdmins(rt.db), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %q (id %d, role %s)\n", opts.username, id, opts.role)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&opts.role, "role", string(folioauth.RoleAdmin), "superadmin, admin or editor")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

type passwordHasher interface {
	HashPassword(plain string) (string, error)
}

func createAdmin(ctx context.Context, hasher passwordHasher, admins *stores.Admins, opts adminCreateOpts) (int64, error) {
	if !strings.Contains(opts.email, "@") {
		return 0, fmt.Errorf("invalid email address: %q", opts.email)
	}
	if !folioauth.Role(opts.role).Valid() {
		return 0, fmt.Errorf("unknown role %q", opts.role)
	}

	hash, err := hasher.HashPassword(opts.password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	a := &stores.Admin{
		Username:     opts.username,
		Email:        opts.email,
		PasswordHash: hash,
		Role:         opts.role,
		IsActive:     true,
	}
	if err := admins.Create(ctx, a); err != nil {
		if errors.Is(err, stores.ErrAdminExists) {
			return 0, fmt.Errorf("admin %q already exists", opts.username)
		}
		return 0, err
	}
	return a.ID, nil
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	fmt.Fprint(out, "Password: ")
	pw, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(out)

	fmt.Fprint(out, "Confirm password: ")
	confirm, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Fprintln(out)

	if string(pw) != string(confirm) {
		return "", errors.New("passwords do not match")
	}
	return string(pw), nil
}

// ---------- admin enable / disable ----------

func newAdminSetActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " an admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			v := viper.GetViper()
			db, err := openDB(ctx, v)
			if err != nil {
				return err
			}
			defer db.Close()

			admins := stores.NewAdmins(db)
			a, err := admins.GetByUsername(ctx, args[0])
			if err != nil {
				return err
			}
			if err := admins.SetActive(ctx, a.ID, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %q %sd\n", a.Username, use)
			return nil
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/easypeasy/internal/db"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/security"
	"github.com/terraincognita07/easypeasy/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const temporaryPasswordLength = 12

type resetPasswordOptions struct {
	email  string
	prompt bool
}

func newResetPasswordCommand(options *rootOptions) *cobra.Command {
	reset := &resetPasswordOptions{}
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a user's password from the server console",
		Long: "Replaces the password of the account with --email. By default a temporary\n" +
			"password is generated and the user must change it on next login; with\n" +
			"--prompt the new password is read from the terminal instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := options.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			database, err := db.OpenSQLite(cfg.DBPath, log)
			if err != nil {
				return fmt.Errorf("database init failed: %w", err)
			}
			if sqlDB, err := database.DB(); err == nil {
				defer sqlDB.Close()
			}

			chosen := ""
			if reset.prompt {
				chosen, err = promptNewPassword(cmd.OutOrStdout(), os.Stdin)
				if err != nil {
					return err
				}
			}
			return RunResetPasswordCommand(cmd.Context(), db.NewUserRepository(database), reset.email, chosen, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&reset.email, "email", "", "email of the account to reset")
	cmd.Flags().BoolVar(&reset.prompt, "prompt", false, "read the new password from the terminal")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

type resetUserRepository interface {
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	UpdatePassword(ctx context.Context, userID string, passwordHash string, mustChangePassword bool) error
}

func RunResetPasswordCommand(ctx context.Context, users resetUserRepository, email string, password string, out io.Writer) error {
	normalizedEmail := services.NormalizeAuthEmail(email)
	if normalizedEmail == "" {
		return errors.New("a valid email is required")
	}

	user, err := users.FindByNormalizedEmail(ctx, normalizedEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found", normalizedEmail)
		}
		return fmt.Errorf("load user: %w", err)
	}

	temporary := password == ""
	if temporary {
		password, err = security.TemporaryPassword(temporaryPasswordLength)
		if err != nil {
			return fmt.Errorf("generate temporary password: %w", err)
		}
	} else if err := services.ValidatePasswordStrength(password); err != nil {
		return errors.New("password must be 8-72 characters with upper and lower case letters and a digit")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.UpdatePassword(ctx, user.ID, string(passwordHash), temporary); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	fmt.Fprintln(out, "Password reset successful")
	if temporary {
		fmt.Fprintf(out, "Temporary password: %s\n", password)
		fmt.Fprintln(out, "User must change password on next login.")
	}
	return nil
}

func promptNewPassword(out io.Writer, stdin *os.File) (string, error) {
	fmt.Fprint(out, "New password: ")
	first, err := readPasswordNoEcho(stdin)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := readPasswordNoEcho(stdin)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

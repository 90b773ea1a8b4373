package main

import (
	"citizenone/models"
	"citizenone/repository"
	"citizenone/schema"
	"citizenone/service"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := schema.InitializeDatabase(db); err != nil {
				return err
			}
			if err := schema.ValidateRequiredColumns(db, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s)\n", strings.Join(schema.TableNames(), ", "))
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			users := service.NewUserService(
				repository.NewUserRepository(db),
				repository.NewDepartmentRepository(db),
				cfg.Auth.JWTSecret,
				cfg.Auth.TokenTTL,
			)
			u, err := users.BootstrapAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (ID=%d)\n", u.Email, u.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&password, "password", "", "initial password, at least 8 characters (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSeedDepartmentCmd() *cobra.Command {
	var req models.DepartmentRequest
	cmd := &cobra.Command{
		Use:     "seed-department",
		Short:   "Create a department and the categories it handles",
		Example: "  citizenone-admin seed-department --name \"Water Board\" --code WTR --categories water,sanitation",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			departments := service.NewDepartmentService(repository.NewDepartmentRepository(db), repository.NewUserRepository(db))
			// Operator access is equivalent to an admin acting outside any request.
			operator := models.Principal{Role: models.RoleAdmin, Name: "citizenone-admin"}
			d, err := departments.CreateDepartment(cmd.Context(), operator, &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created department %s %q (ID=%d) handling %v\n", d.Code, d.Name, d.DepartmentID, d.Categories)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "department name (required)")
	cmd.Flags().StringVar(&req.Code, "code", "", "short unique code (required)")
	cmd.Flags().StringSliceVar(&req.Categories, "categories", nil, "comma separated categories handled by the department")
	cmd.Flags().StringVar(&req.ContactEmail, "contact-email", "", "public contact email")
	cmd.Flags().StringVar(&req.ContactPhone, "contact-phone", "", "public contact phone")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

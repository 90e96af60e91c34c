package ctl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/louisbranch/baranex/internal/services/api/app"
	authservice "github.com/louisbranch/baranex/internal/services/auth/service"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// SeedFile is the barangays.yaml layout.
type SeedFile struct {
	Barangays []SeedBarangay `yaml:"barangays"`
}

// SeedBarangay is one barangay and the admins bootstrapped for it.
type SeedBarangay struct {
	domain.Barangay `yaml:",inline"`
	Admins          []SeedAdmin `yaml:"admins"`
}

// SeedAdmin is a pre-verified admin account.
type SeedAdmin struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
	Phone       string `yaml:"phone"`
	// Role defaults to admin.
	Role string `yaml:"role"`
}

// ParseSeed decodes a seed document, rejecting unknown keys.
func ParseSeed(r io.Reader) (SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f SeedFile
	if err := dec.Decode(&f); err != nil {
		return SeedFile{}, fmt.Errorf("decode seed: %w", err)
	}
	if len(f.Barangays) == 0 {
		return SeedFile{}, fmt.Errorf("seed lists no barangays")
	}
	return f, nil
}

func seedCmd(opts *options) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert barangays and bootstrap their admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			seed, err := ParseSeed(f)
			_ = f.Close()
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				return applySeed(cmd.Context(), a, seed, opts.out)
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "barangays.yaml", "seed file")
	return cmd
}

func applySeed(ctx context.Context, a *app.App, seed SeedFile, out io.Writer) error {
	for _, b := range seed.Barangays {
		saved, err := a.Registry.PutBarangay(ctx, b.Barangay)
		if err != nil {
			return fmt.Errorf("barangay %q: %w", b.ID, err)
		}
		fmt.Fprintf(out, "barangay %s: %s\n", saved.ID, saved.Name)

		for _, admin := range b.Admins {
			role := user.RoleAdmin
			if admin.Role != "" {
				if role, err = user.ParseRole(admin.Role); err != nil {
					return fmt.Errorf("admin %q: %w", admin.Email, err)
				}
			}
			u, created, err := a.Auth.Bootstrap(ctx, authservice.SignUpInput{
				Email:       admin.Email,
				Password:    admin.Password,
				DisplayName: admin.DisplayName,
				Phone:       admin.Phone,
				BarangayID:  saved.ID,
			}, role)
			if err != nil {
				return fmt.Errorf("admin %q: %w", admin.Email, err)
			}
			state := "exists"
			if created {
				state = "created"
			}
			fmt.Fprintf(out, "  %s %s (%s)\n", state, u.Email, u.Role)
		}
	}
	return nil
}

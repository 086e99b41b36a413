package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/repository"
	"github.com/NatDug/Field-Buddy/internal/usda"
)

func newProfileCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Farm profile, location and classification",
	}
	cmd.AddCommand(
		newProfileShowCommand(deps),
		newProfileSetCommand(deps),
		newProfileLocateCommand(deps),
		newProfileAddressCommand(deps),
		newProfileClassifyCommand(deps),
	)
	return cmd
}

func newProfileShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the farm profile",
		Args:  noArgs("profile show"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				p, err := rt.svc.Profile.Get(ctx)
				if err != nil {
					return err
				}
				return printProfile(deps, p)
			})
		},
	}
}

func newProfileSetCommand(deps commandDeps) *cobra.Command {
	var req app.SaveProfileRequest
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Set the owner and farm names",
		Example: "  fieldbuddy profile set --name \"Ada Moss\" --farm \"Moss Acres\"",
		Args:    noArgs("profile set"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				p, err := rt.svc.Profile.Save(ctx, req)
				if err != nil {
					return err
				}
				return printProfile(deps, p)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Owner name")
	cmd.Flags().StringVar(&req.FarmName, "farm", "", "Farm name")
	return cmd
}

func newProfileLocateCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Store the configured device position and its address",
		Long:  "Reads the position from FIELDBUDDY_LATITUDE and FIELDBUDDY_LONGITUDE (or the config file) and reverse geocodes it.",
		Args:  noArgs("profile locate"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				p, err := rt.svc.Profile.UseCurrentLocation(ctx)
				if err != nil {
					return err
				}
				return printProfile(deps, p)
			})
		},
	}
}

func newProfileAddressCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "address <query>",
		Short:   "Geocode an address and store it as the farm location",
		Example: "  fieldbuddy profile address \"1200 Farm Rd, Ames, IA\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return usageErrorf("profile address requires an address")
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				p, err := rt.svc.Profile.SetAddress(ctx, query)
				if err != nil {
					return err
				}
				return printProfile(deps, p)
			})
		},
	}
}

func newProfileClassifyCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify the farm from land-use strata and fetch crop statistics",
		Args:  noArgs("profile classify"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				c, err := rt.svc.Profile.Classify(ctx)
				if err != nil {
					return err
				}
				return emit(deps, c, func(w io.Writer) error {
					return printClassification(w, c)
				})
			})
		},
	}
}

func printProfile(deps commandDeps, p *repository.Profile) error {
	return emit(deps, p, func(w io.Writer) error {
		position := "-"
		if p.Latitude != nil && p.Longitude != nil {
			position = fmt.Sprintf("%.5f, %.5f", *p.Latitude, *p.Longitude)
		}
		score := "-"
		if p.EfficiencyScore != nil {
			score = formatFloat(*p.EfficiencyScore)
		}
		rows := [][]string{
			{"name", orDash(p.Name)},
			{"farm", orDash(p.FarmName)},
			{"location", orDash(p.Location)},
			{"position", position},
			{"state", orDash(p.State)},
			{"county", orDash(p.County)},
			{"farm type", orDash(p.FarmType)},
			{"efficiency", score},
		}
		return printTable(w, "FIELD\tVALUE", rows)
	})
}

func printClassification(w io.Writer, c *usda.Classification) error {
	if _, err := fmt.Fprintf(w, "farm type %s (efficiency %s)\n", c.FarmType, formatFloat(c.EfficiencyScore)); err != nil {
		return err
	}
	if c.Strata != nil {
		if _, err := fmt.Fprintf(w, "strata %s: %s%% cultivated, %s%% non-agricultural\n",
			c.Strata.ID, formatFloat(c.Strata.PercentCultivated), formatFloat(c.Strata.PercentNonAgricultural)); err != nil {
			return err
		}
	}
	if len(c.Crops) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(c.Crops))
	for _, crop := range c.Crops {
		rows = append(rows, []string{crop.Commodity, fmt.Sprint(crop.Year), formatFloat(crop.Value), crop.Unit})
	}
	return printTable(w, "COMMODITY\tYEAR\tVALUE\tUNIT", rows)
}

func newAuthCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Local accounts and sessions",
	}
	cmd.AddCommand(
		newAuthSignUpCommand(deps),
		newAuthSignInCommand(deps),
		newAuthProviderCommand(deps),
		newAuthSignOutCommand(deps),
		newAuthWhoAmICommand(deps),
	)
	return cmd
}

func newAuthSignUpCommand(deps commandDeps) *cobra.Command {
	var req app.SignUpRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  noArgs("auth signup"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				u, err := rt.svc.Auth.SignUp(ctx, req)
				if err != nil {
					return err
				}
				return printUser(deps, u)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	return cmd
}

func newAuthSignInCommand(deps commandDeps) *cobra.Command {
	var req app.SignInRequest
	cmd := &cobra.Command{
		Use:   "signin <email-or-phone>",
		Short: "Sign in with an email address or phone number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("auth signin requires an email address or phone number")
			}
			req.Identifier = args[0]
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				u, err := rt.svc.Auth.SignIn(ctx, req)
				if err != nil {
					return err
				}
				return printUser(deps, u)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Name to record when the account is new")
	return cmd
}

// newAuthProviderCommand links an identity verified by an external provider
// flow to a local account.
func newAuthProviderCommand(deps commandDeps) *cobra.Command {
	var ident app.Identity
	cmd := &cobra.Command{
		Use:     "provider",
		Short:   "Sign in with an identity from an external provider",
		Example: "  fieldbuddy auth provider --provider google --subject 10769150350006150715113082367 --email ada@example.com",
		Args:    noArgs("auth provider"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(ident.Provider) == "" || strings.TrimSpace(ident.ProviderID) == "" {
				return usageErrorf("auth provider requires --provider and --subject")
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				u, err := rt.svc.Auth.WithIdentity(app.StaticIdentity{Identity: ident}).SignInWithProvider(ctx)
				if err != nil {
					return err
				}
				return printUser(deps, u)
			})
		},
	}
	cmd.Flags().StringVar(&ident.Provider, "provider", "", "Provider name, e.g. google")
	cmd.Flags().StringVar(&ident.ProviderID, "subject", "", "Provider subject id")
	cmd.Flags().StringVar(&ident.Email, "email", "", "Email address from the provider")
	cmd.Flags().StringVar(&ident.Phone, "phone", "", "Phone number from the provider")
	cmd.Flags().StringVar(&ident.Name, "name", "", "Display name from the provider")
	cmd.Flags().StringVar(&ident.AvatarURL, "avatar", "", "Avatar URL from the provider")
	return cmd
}

func newAuthSignOutCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  noArgs("auth signout"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Auth.SignOut(ctx); err != nil {
					return err
				}
				return emit(deps, map[string]bool{"signed_out": true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "signed out")
					return err
				})
			})
		},
	}
}

func newAuthWhoAmICommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  noArgs("auth whoami"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				u, err := rt.svc.Auth.Current(ctx)
				if err != nil {
					return err
				}
				return printUser(deps, u)
			})
		},
	}
}

func printUser(deps commandDeps, u *repository.User) error {
	return emit(deps, u, func(w io.Writer) error {
		contact := u.Email
		if contact == "" {
			contact = u.Phone
		}
		_, err := fmt.Fprintf(w, "%s <%s> via %s\n", u.Name, orDash(contact), orDash(u.Provider))
		return err
	})
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/repository"
)

func newTeamCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Team members and page permissions",
	}
	cmd.AddCommand(
		newTeamAddCommand(deps),
		newTeamListCommand(deps),
		newTeamRemoveCommand(deps),
		newTeamPermsCommand(deps),
		newTeamGrantCommand(deps),
	)
	return cmd
}

func newTeamAddCommand(deps commandDeps) *cobra.Command {
	var req app.AddMemberRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a team member",
		Args:  noArgs("team add"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				m, err := rt.svc.Team.Add(ctx, req)
				if err != nil {
					return err
				}
				return emit(deps, m, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "member %d: %s (%s)\n", m.ID, m.Name, m.Role)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Member name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&req.Role, "role", "", "Role (default worker)")
	return cmd
}

func newTeamListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List team members",
		Args:  noArgs("team ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				members, err := rt.svc.Team.List(ctx)
				if err != nil {
					return err
				}
				return emit(deps, members, func(w io.Writer) error {
					rows := make([][]string, 0, len(members))
					for _, m := range members {
						rows = append(rows, []string{fmt.Sprint(m.ID), m.Name, m.Role, orDash(m.Email), orDash(m.Phone)})
					}
					return printTable(w, "ID\tNAME\tROLE\tEMAIL\tPHONE", rows)
				})
			})
		},
	}
}

func newTeamRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a team member and their permissions",
		Args:  oneID("team rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Team.Remove(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "member", id)
			})
		},
	}
}

func newTeamPermsCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "perms <member-id>",
		Short: "Show effective page permissions for a member",
		Args:  oneID("team perms"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				perms, err := rt.svc.Team.Permissions(ctx, id)
				if err != nil {
					return err
				}
				return emit(deps, perms, func(w io.Writer) error {
					return printPermissions(w, perms)
				})
			})
		},
	}
}

func newTeamGrantCommand(deps commandDeps) *cobra.Command {
	var (
		read, write bool
		scope       string
	)
	cmd := &cobra.Command{
		Use:     "grant <member-id> <page>",
		Short:   "Set read and write access for a member on one page",
		Example: "  fieldbuddy team grant 2 inventory --read --write\n  fieldbuddy team grant 2 reports --read=false",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageErrorf("team grant requires a member id and a page (%s)", strings.Join(app.Pages, ", "))
			}
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			req := app.SetPermissionRequest{MemberID: id, Page: args[1], CanRead: read, CanWrite: write, DataScope: scope}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				p, err := rt.svc.Team.SetPermission(ctx, req)
				if err != nil {
					return err
				}
				return emit(deps, p, func(w io.Writer) error {
					return printPermissions(w, []repository.Permission{*p})
				})
			})
		},
	}
	cmd.Flags().BoolVar(&read, "read", true, "Allow reading the page")
	cmd.Flags().BoolVar(&write, "write", false, "Allow changes on the page")
	cmd.Flags().StringVar(&scope, "scope", "", "Data scope (default farm-wide)")
	return cmd
}

func printPermissions(w io.Writer, perms []repository.Permission) error {
	rows := make([][]string, 0, len(perms))
	for _, p := range perms {
		rows = append(rows, []string{p.Page, boolToState(p.CanRead, "yes", "no"), boolToState(p.CanWrite, "yes", "no"), p.DataScope})
	}
	return printTable(w, "PAGE\tREAD\tWRITE\tSCOPE", rows)
}

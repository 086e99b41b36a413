package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
)

func newDocumentCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doc",
		Aliases: []string{"document"},
		Short:   "Document records",
	}
	cmd.AddCommand(newDocumentAddCommand(deps), newDocumentListCommand(deps), newDocumentRemoveCommand(deps))
	return cmd
}

func newDocumentAddCommand(deps commandDeps) *cobra.Command {
	var req app.AddDocumentRequest
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Record a document",
		Example: "  fieldbuddy doc add --title \"Seed invoice\" --type invoice --tag seed --tag 2024 --uri file:///docs/inv.pdf",
		Args:    noArgs("doc add"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				doc, err := rt.svc.Documents.Add(ctx, req)
				if err != nil {
					return err
				}
				return emit(deps, doc, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "document %d: %s\n", doc.ID, doc.Title)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Document title")
	cmd.Flags().StringVar(&req.Type, "type", "", "Document type")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&req.FileURI, "uri", "", "Where the file lives")
	return cmd
}

func newDocumentListCommand(deps commandDeps) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List documents, optionally with one tag",
		Args:  noArgs("doc ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				docs, err := rt.svc.Documents.List(ctx, tag)
				if err != nil {
					return err
				}
				return emit(deps, docs, func(w io.Writer) error {
					rows := make([][]string, 0, len(docs))
					for _, d := range docs {
						rows = append(rows, []string{fmt.Sprint(d.ID), d.Title, orDash(d.Type), orDash(strings.Join(d.Tags, ",")), orDash(d.FileURI)})
					}
					return printTable(w, "ID\tTITLE\tTYPE\tTAGS\tURI", rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only documents carrying this tag")
	return cmd
}

func newDocumentRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a document record",
		Args:  oneID("doc rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("document", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Documents.Delete(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "document", id)
			})
		},
	}
}

func newOverrideCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Custom display labels",
	}
	cmd.AddCommand(newOverrideListCommand(deps), newOverrideSetCommand(deps), newOverrideRemoveCommand(deps))
	return cmd
}

func newOverrideListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List label overrides",
		Args:  noArgs("override ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				all, err := rt.svc.Overrides.All(ctx)
				if err != nil {
					return err
				}
				return emit(deps, all, func(w io.Writer) error {
					keys := make([]string, 0, len(all))
					for k := range all {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					rows := make([][]string, 0, len(keys))
					for _, k := range keys {
						rows = append(rows, []string{k, all[k]})
					}
					return printTable(w, "KEY\tVALUE", rows)
				})
			})
		},
	}
}

func newOverrideSetCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Set a label override",
		Example: "  fieldbuddy override set nav.crops Fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageErrorf("override set requires a key and a value")
			}
			key, value := args[0], args[1]
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Overrides.Set(ctx, key, value); err != nil {
					return err
				}
				return emit(deps, map[string]string{"key": key, "value": value}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s = %s\n", key, value)
					return err
				})
			})
		},
	}
}

func newOverrideRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>",
		Short: "Remove a label override",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("override rm requires exactly one key")
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Overrides.Delete(ctx, args[0]); err != nil {
					return err
				}
				return printRemoved(deps, "override", args[0])
			})
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/repository"
)

func newCropCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Crop management",
	}
	cmd.AddCommand(
		newCropAddCommand(deps),
		newCropListCommand(deps),
		newCropShowCommand(deps),
		newCropEditCommand(deps),
		newCropRemoveCommand(deps),
	)
	return cmd
}

func newCropAddCommand(deps commandDeps) *cobra.Command {
	var (
		req     app.AddCropRequest
		acreage float64
	)
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a crop",
		Example: "  fieldbuddy crop add --name Corn --variety Dent --acreage 40 --season summer",
		Args:    noArgs("crop add"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("acreage") {
				req.Acreage = &acreage
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				crop, err := rt.svc.Crops.Add(ctx, req)
				if err != nil {
					return err
				}
				return printCrop(deps, crop)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Crop name")
	cmd.Flags().StringVar(&req.Variety, "variety", "", "Variety")
	cmd.Flags().Float64Var(&acreage, "acreage", 0, "Planted acreage")
	cmd.Flags().StringVar(&req.Season, "season", "", "Season")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	return cmd
}

func newCropListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List crops, newest first",
		Args:  noArgs("crop ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				crops, err := rt.svc.Crops.List(ctx)
				if err != nil {
					return err
				}
				return emit(deps, crops, func(w io.Writer) error {
					rows := make([][]string, 0, len(crops))
					for _, c := range crops {
						acreage := "-"
						if c.Acreage != nil {
							acreage = formatFloat(*c.Acreage)
						}
						rows = append(rows, []string{fmt.Sprint(c.ID), c.Name, orDash(c.Variety), acreage, orDash(c.Season)})
					}
					return printTable(w, "ID\tNAME\tVARIETY\tACREAGE\tSEASON", rows)
				})
			})
		},
	}
}

func newCropShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one crop",
		Args:  oneID("crop show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("crop", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				crop, err := rt.svc.Crops.Get(ctx, id)
				if err != nil {
					return err
				}
				return printCrop(deps, crop)
			})
		},
	}
}

func newCropEditCommand(deps commandDeps) *cobra.Command {
	var (
		name, variety, season, notes string
		acreage                      float64
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change crop fields",
		Args:  oneID("crop edit"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("crop", args[0])
			if err != nil {
				return err
			}
			req := app.UpdateCropRequest{ID: id}
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("variety") {
				req.Variety = &variety
			}
			if flags.Changed("acreage") {
				req.Acreage = &acreage
			}
			if flags.Changed("season") {
				req.Season = &season
			}
			if flags.Changed("notes") {
				req.Notes = &notes
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				crop, err := rt.svc.Crops.Update(ctx, req)
				if err != nil {
					return err
				}
				return printCrop(deps, crop)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Crop name")
	cmd.Flags().StringVar(&variety, "variety", "", "Variety")
	cmd.Flags().Float64Var(&acreage, "acreage", 0, "Planted acreage")
	cmd.Flags().StringVar(&season, "season", "", "Season")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	return cmd
}

func newCropRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a crop",
		Args:  oneID("crop rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("crop", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Crops.Delete(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "crop", id)
			})
		},
	}
}

func printCrop(deps commandDeps, c *repository.Crop) error {
	return emit(deps, c, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "crop %d: %s variety=%s season=%s\n", c.ID, c.Name, orDash(c.Variety), orDash(c.Season))
		return err
	})
}

func printRemoved(deps commandDeps, kind string, id any) error {
	return emit(deps, map[string]any{"removed": kind, "id": id}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "removed %s %v\n", kind, id)
		return err
	})
}

func newTaskCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task management",
	}
	cmd.AddCommand(
		newTaskAddCommand(deps),
		newTaskListCommand(deps),
		newTaskSetDoneCommand(deps, "done", "Mark a task done", true),
		newTaskSetDoneCommand(deps, "undo", "Mark a task pending again", false),
		newTaskToggleCommand(deps),
		newTaskRemoveCommand(deps),
	)
	return cmd
}

func newTaskAddCommand(deps commandDeps) *cobra.Command {
	var (
		req    app.AddTaskRequest
		cropID int64
	)
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a task",
		Example: "  fieldbuddy task add --title Irrigate --crop 1 --scheduled 2024-06-01",
		Args:    noArgs("task add"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.CropID, err = optionalID("crop", cropID); err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				task, err := rt.svc.Tasks.Add(ctx, req)
				if err != nil {
					return err
				}
				return printTask(deps, task)
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Task description")
	cmd.Flags().Int64Var(&cropID, "crop", 0, "Crop id the task belongs to")
	cmd.Flags().StringVar(&req.AssignedTo, "assign", "", "Who the task is assigned to")
	cmd.Flags().StringVar(&req.ScheduledFor, "scheduled", "", "Scheduled date (YYYY-MM-DD)")
	return cmd
}

func newTaskListCommand(deps commandDeps) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tasks, newest first",
		Args:  noArgs("task ls"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				tasks, err := rt.svc.Tasks.List(ctx, status)
				if err != nil {
					return err
				}
				return emit(deps, tasks, func(w io.Writer) error {
					rows := make([][]string, 0, len(tasks))
					for _, t := range tasks {
						rows = append(rows, []string{fmt.Sprint(t.ID), t.Status, t.Title, formatID(t.CropID), orDash(t.ScheduledFor), orDash(t.AssignedTo)})
					}
					return printTable(w, "ID\tSTATUS\tTITLE\tCROP\tSCHEDULED\tASSIGNED", rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only tasks with this status (pending or done)")
	return cmd
}

func newTaskSetDoneCommand(deps commandDeps, use, short string, done bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  oneID("task " + use),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				task, err := rt.svc.Tasks.SetDone(ctx, id, done)
				if err != nil {
					return err
				}
				return printTask(deps, task)
			})
		},
	}
}

func newTaskToggleCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between pending and done",
		Args:  oneID("task toggle"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				task, err := rt.svc.Tasks.Toggle(ctx, id)
				if err != nil {
					return err
				}
				return printTask(deps, task)
			})
		},
	}
}

func newTaskRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  oneID("task rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Tasks.Delete(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "task", id)
			})
		},
	}
}

func printTask(deps commandDeps, t *repository.Task) error {
	return emit(deps, t, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "task %d: %s [%s]\n", t.ID, t.Title, t.Status)
		return err
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sarinfer/internal/registry"
)

// withApp runs fn against a connected app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	return fn(ctx, a)
}

func newLoadModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-model NAME",
		Short: "Request loading of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fmt.Fprintf(out, "Loading model: %s...\n", args[0])
				if err := a.svc.Load(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Load of model %s requested.\n", args[0])
				return nil
			})
		},
	}
}

func newListModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.svc.List(ctx)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No models registered.")
					return nil
				}
				for _, m := range list {
					fmt.Fprintf(out, "Model: %s, ID: %s, Version: %s, Status: %s\n",
						m.ModelName, m.ModelID, m.Version, m.LoadStatus)
				}
				return nil
			})
		},
	}
}

func newRegisterModelCmd() *cobra.Command {
	var req registry.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register-model",
		Short: "Register a model version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withApp(cmd, func(ctx context.Context, a *app) error {
				m, created, err := a.svc.Register(ctx, req)
				if err != nil {
					return err
				}
				if !created {
					return fmt.Errorf("model %s already exists", req.ModelID)
				}
				fmt.Fprintf(out, "Registered model %s version %s with id %s.\n", m.ModelName, m.Version, m.ModelID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ModelName, "name", "", "model name")
	f.Float64Var(&req.Size, "size", 0, "model size")
	f.StringVar(&req.Location, "location", "", "local folder holding the model")
	f.StringVar(&req.Version, "version", "", "version label; assigned automatically when empty")
	f.StringVar(&req.ModelID, "id", "", "model id; generated when empty")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

// transferFlags are shared by backup-model and restore-model.
type transferFlags struct {
	id     string
	bucket string
	prefix string
}

func (t *transferFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&t.id, "id", "", "select the model by id instead of the newest version of NAME")
	f.StringVar(&t.bucket, "bucket", "", "bucket; defaults to S3_BUCKET_NAME")
	f.StringVar(&t.prefix, "prefix", "", "key prefix; defaults to models/<name>/<version>")
}

func (t *transferFlags) ref(name string) registry.ModelRef {
	if t.id != "" {
		return registry.ModelRef{ModelID: t.id}
	}
	return registry.ModelRef{ModelName: name}
}

func newBackupModelCmd() *cobra.Command {
	var flags transferFlags

	cmd := &cobra.Command{
		Use:   "backup-model NAME PATH",
		Short: "Back up a model folder to S3",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fmt.Fprintf(out, "Backing up model %s to S3...\n", args[0])
				result, err := a.svc.Backup(ctx, registry.BackupRequest{
					ModelRef:  flags.ref(args[0]),
					LocalPath: args[1],
					Bucket:    flags.bucket,
					Prefix:    flags.prefix,
				})
				printReport(out, result)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Model %s backed up to %s.\n", args[0], result.Location)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newRestoreModelCmd() *cobra.Command {
	var flags transferFlags

	cmd := &cobra.Command{
		Use:   "restore-model NAME PATH",
		Short: "Restore a model folder from S3",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fmt.Fprintf(out, "Restoring model %s from S3...\n", args[0])
				result, err := a.svc.Restore(ctx, registry.RestoreRequest{
					ModelRef:  flags.ref(args[0]),
					LocalPath: args[1],
					Bucket:    flags.bucket,
					Prefix:    flags.prefix,
				})
				printReport(out, result)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Model %s restored from %s.\n", args[0], result.Location)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

// printReport lists failed files of a transfer, if any.
func printReport(out io.Writer, result *registry.BackupResult) {
	if result == nil || result.Report == nil {
		return
	}
	r := result.Report
	fmt.Fprintf(out, "%d files, %d bytes transferred.\n", r.Succeeded(), r.Bytes())
	for _, f := range r.Failed() {
		name := f.Key
		if name == "" {
			name = f.Path
		}
		fmt.Fprintf(out, "  failed: %s: %v\n", name, f.Err)
	}
}

// isPartial reports whether err is a transfer where only some files failed.
func isPartial(err error) bool {
	return errors.Is(err, registry.ErrPartialTransfer)
}

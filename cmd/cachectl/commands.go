package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/cachekit"
)

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, c cachekit.Cache[string]) error {
				v, ok, err := c.Read(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", args[0], errNotFound)
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func (a *app) setCmd() *cobra.Command {
	var expire int

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store value under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, c cachekit.Cache[string]) error {
				var opts []cachekit.WriteOption
				if cmd.Flags().Changed("expire") {
					opts = append(opts, cachekit.WithExpire(expire))
				}
				return c.Write(ctx, args[0], args[1], opts...)
			})
		},
	}
	cmd.Flags().IntVar(&expire, "expire", 0, "Seconds until the entry expires (default from config; <= 0 never)")
	return cmd
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete key (missing keys are not an error)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, c cachekit.Cache[string]) error {
				return c.Delete(ctx, args[0])
			})
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [prefix]",
		Short: "Delete every entry under prefix, or the whole cache dir",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return a.with(cmd, func(ctx context.Context, c cachekit.Cache[string]) error {
				return c.Clear(ctx, prefix)
			})
		},
	}
}

func (a *app) lockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock <key>",
		Short: "Place a write marker on key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, c cachekit.Cache[string]) error {
				return c.Lock(ctx, args[0])
			})
		},
	}
}

func (a *app) unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <key>",
		Short: "Remove the write marker on key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, c cachekit.Cache[string]) error {
				return c.Unlock(ctx, args[0])
			})
		},
	}
}

func (a *app) lockedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locked <key>",
		Short: "Print whether key carries a write marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, c cachekit.Cache[string]) error {
				locked, err := c.IsLocked(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), locked)
				return nil
			})
		},
	}
}

package migration

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// CLI 将迁移命令的结果渲染为文本
type CLI struct {
	migrator Migrator
	out      io.Writer
}

// NewCLI 创建 CLI
func NewCLI(migrator Migrator, out io.Writer) *CLI {
	return &CLI{migrator: migrator, out: out}
}

// Run 执行命令: up, down, steps N, goto V, force V, version, status
func (c *CLI) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "up":
		fmt.Fprintln(c.out, "Running migrations...")
		if err := c.migrator.Up(ctx); err != nil {
			return err
		}
		return c.printVersion(ctx, "Migrations complete.")

	case "down":
		fmt.Fprintln(c.out, "Rolling back last migration...")
		if err := c.migrator.Down(ctx); err != nil {
			return err
		}
		return c.printVersion(ctx, "Rollback complete.")

	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := c.migrator.Steps(ctx, n); err != nil {
			return err
		}
		return c.printVersion(ctx, "Complete.")

	case "goto":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("version must not be negative: %d", n)
		}
		if err := c.migrator.Goto(ctx, uint(n)); err != nil {
			return err
		}
		return c.printVersion(ctx, "Migration complete.")

	case "force":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := c.migrator.Force(ctx, n); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Version forced to %d\n", n)
		return nil

	case "version":
		version, dirty, err := c.migrator.Version(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Fprintln(c.out, "No migrations applied yet.")
			return nil
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		fmt.Fprintf(c.out, "Current version: %d%s\n", version, suffix)
		return nil

	case "status":
		return c.printStatus(ctx)

	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

func (c *CLI) printVersion(ctx context.Context, prefix string) error {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s Current version: %d\n", prefix, info.CurrentVersion)
	return nil
}

func (c *CLI) printStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		fmt.Fprintln(c.out, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	pending := 0
	for _, s := range statuses {
		status := "Pending"
		switch {
		case s.Dirty:
			status = "Dirty"
		case s.Applied:
			status = "Applied"
		default:
			pending++
		}
		fmt.Fprintf(w, "%06d\t%s\t%s\n", s.Version, s.Name, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\nTotal: %d, Pending: %d\n", len(statuses), pending)
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing numeric argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid numeric argument %q: %w", args[0], err)
	}
	return n, nil
}

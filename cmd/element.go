// File: cmd/element.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/docdriver/internal/locator"
	"github.com/xkilldash9x/docdriver/internal/session"
)

// newElementCmd wires the shared locator flags to an action on one element.
func newElementCmd(use, short string, f *locateFlags, run func(ctx context.Context, cmd *cobra.Command, s *session.Session, loc locator.Locator) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Reject a bad locator before touching the host.
			loc, err := f.locator()
			if err != nil {
				return err
			}
			return withSession(cmd, f, func(ctx context.Context, s *session.Session) error {
				return run(ctx, cmd, s, loc)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newExistsCmd() *cobra.Command {
	f := &locateFlags{}
	return newElementCmd("exists", "Print whether an element exists", f,
		func(ctx context.Context, cmd *cobra.Command, s *session.Session, loc locator.Locator) error {
			ok, err := s.Exists(ctx, loc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		})
}

func newClickCmd() *cobra.Command {
	f := &locateFlags{}
	var (
		link      bool
		highlight bool
	)
	cmd := newElementCmd("click", "Click an element and wait for any page load it starts", f,
		func(ctx context.Context, cmd *cobra.Command, s *session.Session, loc locator.Locator) error {
			click := func(ctx context.Context) error {
				follow := s.Click
				if link {
					follow = s.ClickLink
				}
				o, err := follow(ctx, loc)
				if err != nil {
					return err
				}
				printOutcome(cmd, o)
				return nil
			}
			if highlight {
				return s.Highlight(ctx, loc, click)
			}
			return click(ctx)
		})
	cmd.Flags().BoolVar(&link, "link", false, "follow the link by setting the target window's location")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "paint the element yellow while clicking")
	return cmd
}

func newValueCmd() *cobra.Command {
	f := &locateFlags{}
	var (
		set    string
		doSet  bool
		keep   bool
		option string
	)
	cmd := newElementCmd("value", "Print a field's value, or change it with --set or --option", f,
		func(ctx context.Context, cmd *cobra.Command, s *session.Session, loc locator.Locator) error {
			switch {
			case option != "":
				return s.SelectOption(ctx, loc, session.OptionText, option)
			case doSet && keep:
				return s.AppendText(ctx, loc, set)
			case doSet:
				return s.SetText(ctx, loc, set)
			}
			v, err := s.GetValue(ctx, loc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	cmd.Flags().StringVar(&set, "set", "", "type this text into the field, one key at a time")
	cmd.Flags().BoolVar(&keep, "append", false, "with --set, keep the existing text")
	cmd.Flags().StringVar(&option, "option", "", "select the option of a select list with this text")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		doSet = cmd.Flags().Changed("set")
	}
	return cmd
}

func newCompileCmd() *cobra.Command {
	f := &locateFlags{}
	var operation string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the script an element operation would send, without a browser",
		Args:  cobra.NoArgs,
		// The composed script is pure output; no config or host is needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := f.locator()
			if err != nil {
				return err
			}
			scope, err := f.scope()
			if err != nil {
				return err
			}
			text, err := session.ComposeIn(scope, loc, operation)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&operation, "operation", "", "script body run with element bound; empty only checks existence")
	return cmd
}

// File: cmd/page.go
package cmd

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/docdriver/internal/pageload"
	"github.com/xkilldash9x/docdriver/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newGotoCmd() *cobra.Command {
	var (
		dialog string
		sheet  bool
	)
	cmd := &cobra.Command{
		Use:   "goto <url>",
		Short: "Load a URL in the current document and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, nil, func(ctx context.Context, s *session.Session) error {
				outcome, err := s.GotoWithDialog(ctx, args[0], dialog, sheet)
				if err != nil {
					return err
				}
				printOutcome(cmd, outcome)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dialog, "dialog", "", "press this button on a system dialog that blocks the load")
	cmd.Flags().BoolVar(&sheet, "sheet", false, "the dialog is a sheet on the browser window")
	return cmd
}

func newReloadCmd() *cobra.Command {
	f := &locateFlags{}
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload the document and wait for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, f, func(ctx context.Context, s *session.Session) error {
				outcome, err := s.Reload(ctx)
				if err != nil {
					return err
				}
				printOutcome(cmd, outcome)
				return nil
			})
		},
	}
	f.registerScope(cmd)
	return cmd
}

// newDocumentCmd builds a command that prints one string read from the document.
func newDocumentCmd(use, short string, read func(*session.Session, context.Context) (string, error)) *cobra.Command {
	f := &locateFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, f, func(ctx context.Context, s *session.Session) error {
				out, err := read(s, ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	f.registerScope(cmd)
	return cmd
}

func newTextCmd() *cobra.Command {
	return newDocumentCmd("text", "Print the document body's text", (*session.Session).Text)
}

func newTitleCmd() *cobra.Command {
	return newDocumentCmd("title", "Print the document title", (*session.Session).Title)
}

func newURLCmd() *cobra.Command {
	return newDocumentCmd("url", "Print the current URL", (*session.Session).URL)
}

func newLinksCmd() *cobra.Command {
	f := &locateFlags{}
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List the document's links as text<TAB>href",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, f, func(ctx context.Context, s *session.Session) error {
				links, err := s.Links(ctx)
				if err != nil {
					return err
				}
				for _, l := range links {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.Text, l.Href)
				}
				return nil
			})
		},
	}
	f.registerScope(cmd)
	return cmd
}

func newEvalCmd() *cobra.Command {
	f := &locateFlags{}
	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Run a script body in the document and print its return value",
		Long: `Run a script body in the document and print its return value.
The body may use return. Strings print as-is; anything else prints as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, f, func(ctx context.Context, s *session.Session) error {
				reply, err := s.Eval(ctx, args[0])
				if err != nil {
					return err
				}
				return printReply(cmd, reply)
			})
		},
	}
	f.registerScope(cmd)
	return cmd
}

func newAlertCmd() *cobra.Command {
	var security string
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Press OK on a JavaScript alert, or --security <label> on a security sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, nil, func(ctx context.Context, s *session.Session) error {
				var (
					pressed bool
					err     error
				)
				if security != "" {
					pressed, err = s.ClickSecurityWarning(ctx, security)
				} else {
					pressed, err = s.ClickAlert(ctx)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pressed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&security, "security", "", "button label on the security warning sheet")
	return cmd
}

func printOutcome(cmd *cobra.Command, o pageload.Outcome) {
	switch {
	case o.ExtraAction:
		fmt.Fprintf(cmd.OutOrStdout(), "%s (dialog handled) after %d rounds\n", o.State, o.Rounds)
	case o.RedirectDelay > 0:
		fmt.Fprintf(cmd.OutOrStdout(), "%s after %d rounds, followed a %s meta refresh\n", o.State, o.Rounds, o.RedirectDelay)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s after %d rounds\n", o.State, o.Rounds)
	}
}

func printReply(cmd *cobra.Command, reply any) error {
	if s, ok := reply.(string); ok {
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("cannot print script reply: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

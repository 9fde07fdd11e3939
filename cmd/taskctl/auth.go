package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/client/api"
)

var errNotLoggedIn = errors.New("not logged in; run `taskctl login` first")

func (a *app) loginCmd() *cobra.Command {
	var (
		password string
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in and store the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			username := a.session.RememberedUsername()
			if len(args) == 1 {
				username = args[0]
			}
			var err error
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd.OutOrStdout(), in, "Password: "); err != nil {
					return err
				}
			}

			u, err := a.session.Login(cmd.Context(), username, password, remember)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	cmd.Flags().BoolVar(&remember, "remember", true, "remember the username for the next login")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var (
		req   api.SignupRequest
		orgID int64
	)
	cmd := &cobra.Command{
		Use:   "signup <username> <email>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Username = args[0]
			req.Email = args[1]
			if req.Password == "" {
				p, err := prompt(cmd.OutOrStdout(), bufio.NewReader(cmd.InOrStdin()), "Password: ")
				if err != nil {
					return err
				}
				req.Password = p
			}
			if orgID > 0 {
				req.OrganizationID = &orgID
			}

			u, err := a.session.Signup(cmd.Context(), req)
			if err != nil {
				var apiErr *api.Error
				if errors.As(err, &apiErr) {
					for field, msg := range apiErr.FieldErrors() {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
					}
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s (%s)\n", u.Username, u.Role())
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().Int64Var(&orgID, "org", 0, "organization to join (default organization when omitted)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			u := a.session.User()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", u.Username, u.Email)
			if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
				fmt.Fprintf(out, "  name: %s\n", name)
			}
			fmt.Fprintf(out, "  role: %s\n", u.Role())
			if u.OrganizationID != nil {
				fmt.Fprintf(out, "  organization: %d\n", *u.OrganizationID)
			}
			if a.session.Bypass() {
				fmt.Fprintln(out, "  (authentication bypass)")
			}
			return nil
		},
	}
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.TrimSuffix(strings.TrimSpace(label), ":"))
	}
	return line, nil
}

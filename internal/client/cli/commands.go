package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/client"
	"github.com/dmitrijs2005/jwtkeeper/internal/client/services"
)

// report prints err in user terms and returns it.
func (a *App) report(err error) error {
	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotSignedIn):
		a.printf("You are not signed in. Use 'login'.\n")
	case errors.Is(err, client.ErrUnauthorized):
		a.printf("The server rejected the credentials or the session was revoked.\n")
	case errors.Is(err, client.ErrNotFound):
		a.printf("Not found.\n")
	case errors.Is(err, client.ErrUnavailable):
		a.printf("Server unavailable: %v\n", err)
	default:
		a.printf("Error: %v\n", err)
	}
	return err
}

func (a *App) credentials() (string, []byte, error) {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (a *App) Register(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return a.report(err)
	}
	defer wipe(password)

	if err := a.call(ctx, func(ctx context.Context) error { return a.sessions.Register(ctx, email, password) }); err != nil {
		return a.report(err)
	}
	a.printf("Registered %s. Use 'login' to sign in.\n", email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return a.report(err)
	}
	defer wipe(password)

	err = a.call(ctx, func(ctx context.Context) error {
		s, err := a.sessions.Login(ctx, email, password)
		if err != nil {
			return err
		}
		a.printf("Signed in as %s, token %s valid until %s\n", s.Email, s.TokenID, s.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	})
	return a.report(err)
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.call(ctx, a.sessions.Logout); err != nil {
		return a.report(err)
	}
	a.printf("Signed out.\n")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	return a.report(a.call(ctx, func(ctx context.Context) error {
		s, err := a.sessions.Refresh(ctx)
		if err != nil {
			return err
		}
		a.printf("New token %s valid until %s\n", s.TokenID, s.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	}))
}

func (a *App) Whoami(ctx context.Context) error {
	return a.report(a.call(ctx, func(ctx context.Context) error {
		p, err := a.sessions.Whoami(ctx)
		if err != nil {
			return err
		}
		a.printf("%s (id %s), %d sign-ins\n", p.Email, p.ID, p.SignInCount)
		if p.LastSignInAt != nil {
			a.printf("Previous sign-in: %s from %s\n", p.LastSignInAt.Local().Format(time.RFC1123), p.LastSignInIP)
		}
		return nil
	}))
}

func (a *App) Tokens(ctx context.Context) error {
	return a.report(a.call(ctx, func(ctx context.Context) error {
		current, err := a.sessions.Current(ctx)
		if err != nil {
			return err
		}
		tokens, err := a.sessions.Tokens(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "\tJTI\tEXPIRES\tUSER AGENT")
		for _, t := range tokens {
			mark := ""
			if t.TokenID == current.TokenID {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, t.TokenID, t.ExpiresAt.Local().Format(time.RFC1123), t.UserAgent)
		}
		return tw.Flush()
	}))
}

func (a *App) Revoke(ctx context.Context, tokenID string) error {
	if err := a.call(ctx, func(ctx context.Context) error { return a.sessions.Revoke(ctx, tokenID) }); err != nil {
		return a.report(err)
	}
	a.printf("Revoked %s.\n", tokenID)
	return nil
}

func (a *App) RevokeAll(ctx context.Context) error {
	if err := a.call(ctx, a.sessions.RevokeAll); err != nil {
		return a.report(err)
	}
	a.printf("All tokens revoked. Signed out.\n")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.call(ctx, a.sessions.Ping); err != nil {
		return a.report(err)
	}
	a.printf("Server is up.\n")
	return nil
}

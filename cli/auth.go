// ABOUTME: Sign-in and sign-out commands
// ABOUTME: Stores the Confirmed access token in the configured storage backend
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/confirmed"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

// LoginCommand stores an access token. The token comes from --token, from
// stdin when it is not a terminal, or from a hidden prompt.
func LoginCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	tokenFlag := fs.String("token", "", "Access token (prompted when omitted)")
	verify := fs.Bool("verify", false, "Check the token against the userinfo endpoint")
	_ = fs.Parse(args)

	token := strings.TrimSpace(*tokenFlag)
	if token == "" {
		var err error
		if token, err = readToken(os.Stdin); err != nil {
			return err
		}
	}
	return app.login(ctx, token, *verify)
}

func (a *App) login(ctx context.Context, token string, verify bool) error {
	if token == "" {
		return fmt.Errorf("access token cannot be empty")
	}

	claims, err := contactsync.DecodeClaims(token)
	if err != nil {
		return err
	}
	if claims.Subject == "" {
		return contactsync.ErrNoSubject
	}
	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
		if !expiry.After(time.Now()) {
			return fmt.Errorf("access token expired at %s", expiry.Format(time.RFC3339))
		}
	}

	name := claims.Nickname
	if verify {
		info, err := a.Client.UserInfo(ctx, token)
		if err != nil {
			return fmt.Errorf("token rejected: %w", err)
		}
		if info.Nickname != "" {
			name = info.Nickname
		}
	}

	if err := confirmed.SaveToken(a.Storage, cache.AccessTokenKey, cache.TokenExpiresAtKey, token, expiry); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	a.printf("✓ Signed in as %s\n", claims.Subject)
	if name != "" {
		a.printf("  Nickname: %s\n", name)
	}
	if !expiry.IsZero() {
		a.printf("  Expires: %s\n", expiry.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// LogoutCommand removes credentials and session state. Contacts caches are
// kept so the next sign-in starts warm.
func LogoutCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := cache.ClearSession(app.Storage); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	app.println("✓ Signed out (contacts caches kept)")
	return nil
}

func readToken(in *os.File) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}

	fmt.Print("Access token: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

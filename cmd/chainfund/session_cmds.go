package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/chainfund/chainfund-go/internal/config"
	"github.com/chainfund/chainfund-go/internal/wallet"
)

func cmdWalletInit(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("wallet-init", flag.ExitOnError)
	path := fs.String("keystore", cfg.KeystorePath, "keystore file to create")
	passphrase := fs.String("passphrase", cfg.KeystorePassphrase, "keystore passphrase")
	fs.Parse(args)

	if *passphrase == "" {
		return fmt.Errorf("a passphrase is required (flag -passphrase or CHAINFUND_PASSPHRASE)")
	}

	address, err := wallet.CreateKeystore(*path, *passphrase)
	if err != nil {
		return err
	}
	fmt.Printf("created wallet %s\nkeystore: %s\n", address, *path)
	return nil
}

func (a *app) cmdConnect(ctx context.Context) error {
	if err := a.session.ConnectWallet(ctx); err != nil {
		return err
	}
	st := a.session.State()
	fmt.Printf("connected %s\n", st.Connection.Address)
	return nil
}

func (a *app) cmdDisconnect(ctx context.Context) error {
	a.session.DisconnectWallet(ctx)
	fmt.Println("disconnected")
	return nil
}

func (a *app) cmdLogin(ctx context.Context) error {
	if err := a.restoreAndWait(ctx); err != nil {
		return err
	}
	if !a.session.State().Connection.Connected {
		if err := a.session.ConnectWallet(ctx); err != nil {
			return err
		}
	}
	if err := a.session.SignIn(ctx); err != nil {
		return err
	}

	st := a.session.State()
	fmt.Printf("logged in as %s\n", st.Connection.Address)
	if st.Auth.User != nil && st.Auth.User.Username != "" {
		fmt.Printf("username: %s\n", st.Auth.User.Username)
	}
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Println("logged out")
	return nil
}

func (a *app) cmdStatus(ctx context.Context) error {
	if err := a.restoreAndWait(ctx); err != nil {
		return err
	}

	st := a.session.State()
	if !st.Connection.Connected {
		fmt.Println("wallet: not connected")
	} else {
		fmt.Printf("wallet: %s\n", st.Connection.Address)
	}
	if !st.Auth.Authenticated {
		fmt.Println("auth:   not logged in")
		return nil
	}
	if st.Auth.User != nil {
		fmt.Printf("auth:   logged in as %s", st.Auth.User.WalletAddress)
		if st.Auth.User.Username != "" {
			fmt.Printf(" (%s)", st.Auth.User.Username)
		}
		fmt.Println()
	} else {
		fmt.Println("auth:   token held, not yet revalidated")
	}
	return nil
}

// restoreAndWait rehydrates the session and then revalidates synchronously
// so one-shot CLI commands report settled state instead of racing the
// background refresh.
func (a *app) restoreAndWait(ctx context.Context) error {
	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	if err := a.session.Revalidate(ctx); err != nil {
		a.log.Warn().Err(err).Msg("token revalidation failed")
	}
	return nil
}

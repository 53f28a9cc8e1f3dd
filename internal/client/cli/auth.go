package cli

import (
	"context"
	"errors"
	"os"

	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errAlreadyLoggedIn = errors.New("already logged in, logout first")

// Register prompts for email, display name and password and creates the
// account. It does not log in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer wipe(password)

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.api.Register(ctx, &gs.RegisterRequest{Email: email, Name: name, Password: string(password)})
	if err != nil {
		return err
	}

	a.printf("Registered %s with id %d\n", res.User.Email, res.User.ID)
	return nil
}

// Login prompts for credentials and keeps the issued access token for the
// following commands.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		return errAlreadyLoggedIn
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer wipe(password)

	ctx, cancel := a.callContext(ctx)
	defer cancel()

	res, err := a.api.Login(ctx, &gs.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	a.token = res.AccessToken
	a.userID = res.User.ID
	a.userName = res.User.Name
	a.printf("Logged in as %s (id %d)\n", a.userName, a.userID)
	return nil
}

// Logout drops the live channel and forgets the access token.
func (a *App) Logout(context.Context) error {
	a.stopLive()
	a.token = ""
	a.userID = 0
	a.userName = ""
	a.println("Logged out")
	return nil
}

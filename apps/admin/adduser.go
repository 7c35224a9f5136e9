package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core/account"
)

// addUser creates an account.
func (cli *commandLine) addUser(na account.NewAccount) error {
	acc, err := cli.accountSvc.Create(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s account %q created\n", acc.Role, acc.Username)
	return nil
}

package main

import (
	"context"
	"fmt"
)

// createAdmin creates the admin account, or leaves an existing one untouched.
func (cli *commandLine) createAdmin(username, pwd string) error {
	adm, err := cli.accountSvc.EnsureAdmin(context.Background(), username, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("admin %q ready (id %d)\n", adm.Username, adm.ID)
	return nil
}

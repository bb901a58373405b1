package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/trezcool/tutorhub/core/session"
)

// login signs in against the backend and prints the resulting identity. The token is not shown.
func (cli *commandLine) login(role session.Role, email, pwd string) error {
	id, _, err := cli.auth.Login(context.Background(), role, email, pwd)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(out))
	return nil
}

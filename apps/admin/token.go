package main

import (
	"fmt"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
)

func (cli *commandLine) token(instr core.Instructor) error {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(instr, cli.conf), cli.conf)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

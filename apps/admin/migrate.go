package main

import (
	"fmt"

	"github.com/trezcool/gradebook/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.store == nil || cli.store.DB == nil {
		return fmt.Errorf("migrate: the %q engine has no migrations", cli.conf.Database.Engine)
	}

	command := args[0]
	var version int64
	switch command {
	case database.MigrateUp, database.MigrateUpByOne, database.MigrateDown, database.MigrateRedo:
	case database.MigrateUpTo, database.MigrateDownTo:
		if len(args) < 2 {
			return fmt.Errorf("%s must be of form: migrate %s VERSION", command, command)
		}
		v, err := parseVersion(args[1])
		if err != nil {
			return err
		}
		version = v
	default:
		return fmt.Errorf("%q: no such command", command)
	}
	return migrateFunc(cli.store.DB.DB, command, version)
}

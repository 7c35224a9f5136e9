package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/account"
)

func main() {
	conf := core.NewConfig()
	c := di.New(conf, di.Options{LogPrefix: "ADMIN"})

	code := 0
	err := c.Invoke(func(db *sqlx.DB, accountSvc *account.Service, cleanup di.Cleanup) {
		defer cleanup()

		cli := commandLine{db: db, accountSvc: accountSvc, out: os.Stdout}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				log.Printf("\nerror: %s\n", err)
			}
			code = 1
		}
	})
	if err != nil {
		log.Fatalf("%+v", err)
	}
	os.Exit(code)
}

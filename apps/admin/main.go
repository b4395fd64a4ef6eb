package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/core/admission"
	logsvc "github.com/trezcool/admissions/services/logger"
	"github.com/trezcool/admissions/storage"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB; migrations are run explicitly through `migrate`
	store, err := storage.Open(context.Background(), conf, false)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	validate := core.NewValidator()
	account.InitValidators(validate)
	admission.InitValidators(validate)
	account.LoadCommonPasswords(logger)

	// start CLI
	cli := commandLine{
		db:     store.SQL,
		accSvc: account.NewService(store.Accounts, validate),
	}
	err = cli.run(os.Args)
	if cErr := store.Close(); cErr != nil {
		logger.Error(fmt.Sprintf("closing storage: %v", cErr), cErr)
	}
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/claimrecon/crv-app/crv/crvcli"
	"github.com/claimrecon/crv-app/log"
)

func main() {
	if err := crvcli.GetApp().Run(os.Args); err != nil {
		log.Validator.Fatal(err)
	}
}

package main

import "github.com/Reymilan15/milos-cuentas/internal/cli"

func main() {
	cli.Execute()
}

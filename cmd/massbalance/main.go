package main

import "mass-balance-reports/internal/cli"

func main() {
	cli.Execute()
}

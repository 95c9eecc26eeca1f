package main

import "github.com/gestionviaticos/viaticos/cmd"

func main() {
	cmd.Execute()
}

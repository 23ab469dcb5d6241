// cipherscore — confidential health risk scoring over encrypted
// attributes.
package main

import "github.com/ppiankov/cipherscore/internal/cli"

func main() {
	cli.Execute()
}

// walletd is the ledger health front-end. It keeps the ledger identity in an
// object-storage wallet and serves GET / with the ledger ping result.
package main

import "github.com/fyltr/walletd/cli"

func main() {
	cli.Execute()
}

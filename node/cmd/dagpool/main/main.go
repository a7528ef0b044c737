/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-x-dagpool/node/cmd/dagpool"
)

func main() {
	cli := dagpool.NewCLI()
	stop, err := cli.Run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "dagpool: %v\n", err)
		os.Exit(2)
	}
	<-stop
}

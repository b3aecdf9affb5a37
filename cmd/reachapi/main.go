package main

import "github.com/ProofOfReach/ProofOfReachApp-sub001/cmd/reachapi/cmd"

func main() {
	cmd.Execute()
}

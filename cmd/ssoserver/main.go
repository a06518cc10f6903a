// Command ssoserver runs the SSO authority over HTTP.
package main

import "github.com/MrEthical07/goSSO/cmd/ssoserver/cmd"

func main() {
	cmd.Execute()
}

// Command symbiot runs the MQTT bridge described by a configuration file.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

// chatdet trains character-level finite-context models per label and
// classifies text by the model that codes it in the fewest bits.
package main

import (
	"os"

	"github.com/shabbyrobe/chatdet/cmd/chatdet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

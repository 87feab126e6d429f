package world

import (
	"fmt"
	"os"
)

// openTripletBin creates (truncating) dir/<name>.bin for writing via
// WriteAt, the sink FileQueue's async writers target directly.
func openTripletBin(dir, name string) (*os.File, error) {
	f, err := os.Create(tripletPath(dir, name, "bin"))
	if err != nil {
		return nil, fmt.Errorf("world: creating %s.bin: %w", name, err)
	}
	return f, nil
}

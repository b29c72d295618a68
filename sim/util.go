package sim

import "fmt"

func errFromString(r any) error {
	return fmt.Errorf("sim: panic: %v", r)
}

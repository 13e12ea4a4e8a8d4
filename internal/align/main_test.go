// ABOUTME: Package test entry point.
// ABOUTME: Fails the run if batch workers leak goroutines.
package align

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

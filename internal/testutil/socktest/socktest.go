package socktest

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

// Path returns a unix socket path short enough for sun_path limits. The
// directory is removed when the test ends.
func Path(t testing.TB, name string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "tr")
	if err != nil {
		t.Fatalf("socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, name)
}

// Listen binds a unix listener on a fresh socket path.
func Listen(t testing.TB, name string) (net.Listener, string) {
	t.Helper()
	path := Path(t, name)
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen unix %s: %v", path, err)
	}
	return ln, path
}

package workspace

import "testing"

// fakeHome makes userHomeDir return dir and err until t ends.
func fakeHome(t *testing.T, dir string, err error) {
	t.Helper()
	old := userHomeDir
	userHomeDir = func() (string, error) { return dir, err }
	t.Cleanup(func() { userHomeDir = old })
}

// fakeGOOS makes getGOOS report goos until t ends.
func fakeGOOS(t *testing.T, goos string) {
	t.Helper()
	old := getGOOS
	getGOOS = func() string { return goos }
	t.Cleanup(func() { getGOOS = old })
}

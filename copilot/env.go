package copilot

import "os"

// TokenEnvVar is the process-wide environment variable the backing client
// reads its GitHub token from.
const TokenEnvVar = "GITHUB_TOKEN"

// WithTokenEnv runs fn with TokenEnvVar set to token, then restores the
// previous environment state exactly: if the variable was unset before,
// it is unset again (not set to an empty string). Concurrent model-listing
// calls against different connections go through this helper so one
// connection's token never leaks into another's client.
func WithTokenEnv(token string, fn func() error) error {
	prev, existed := os.LookupEnv(TokenEnvVar)
	if err := os.Setenv(TokenEnvVar, token); err != nil {
		return err
	}
	defer func() {
		// Restore failures are secondary; they must not mask fn's error.
		if existed {
			_ = os.Setenv(TokenEnvVar, prev)
		} else {
			_ = os.Unsetenv(TokenEnvVar)
		}
	}()

	return fn()
}

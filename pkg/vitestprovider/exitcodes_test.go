package vitestprovider_test

import (
	"testing"

	"github.com/AndreyAkinshin/vitestprovider/internal/errors"
	"github.com/AndreyAkinshin/vitestprovider/internal/provider"
	"github.com/AndreyAkinshin/vitestprovider/pkg/vitestprovider"
)

// TestExitCodeConsistency verifies that public exit code constants match
// the internal errors package constants.
func TestExitCodeConsistency(t *testing.T) {
	tests := []struct {
		name     string
		public   int
		internal int
		want     int
	}{
		{"Success", vitestprovider.ExitSuccess, errors.ExitSuccess, 0},
		{"Failure/RuntimeError", vitestprovider.ExitFailure, errors.ExitRuntimeError, 1},
		{"ConfigError", vitestprovider.ExitConfigError, errors.ExitConfigError, 2},
		{"EnvError/EnvironmentError", vitestprovider.ExitEnvError, errors.ExitEnvironmentError, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.public != tt.internal || tt.public != tt.want {
				t.Errorf("exit code mismatch: public = %d, internal = %d, want %d",
					tt.public, tt.internal, tt.want)
			}
		})
	}
}

func TestRuntimeMatchesProviderDefault(t *testing.T) {
	if vitestprovider.Runtime != provider.DefaultRuntimeID {
		t.Errorf("Runtime = %q, provider default = %q", vitestprovider.Runtime, provider.DefaultRuntimeID)
	}
}

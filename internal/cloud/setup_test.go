package cloud

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

func TestArtifactStoreSelection(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	viper.Set("MODEL_DIR", dir)

	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"file", false},
		{"FILE", false},
		{"", false},
		{"gcs", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			viper.Set("MODEL_STORE", tt.kind)
			store, err := ArtifactStore(context.Background())
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown MODEL_STORE")
				return
			}
			require.NoError(t, err)
			fs, ok := store.(*ml.FileStore)
			require.True(t, ok)
			assert.Equal(t, dir, fs.Dir)
		})
	}
}

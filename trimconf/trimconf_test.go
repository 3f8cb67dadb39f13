// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trimconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldvault/poold/trim"
)

func TestLoadAppliesNonZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extent_bytes_max: 67108864\nqueue_limit: 4\n"), 0o644))

	params := trim.NewParams()
	f, err := Load(path, params)
	require.NoError(t, err)

	require.Equal(t, uint64(67108864), f.ExtentBytesMax)
	require.Equal(t, uint64(67108864), params.ExtentBytesMax())
	require.Equal(t, int32(4), params.QueueLimit())

	// Fields absent from the document must not disturb the built-in default.
	require.Equal(t, uint64(trim.DefaultExtentBytesMin), params.ExtentBytesMin())
	require.Equal(t, uint64(trim.DefaultTxgBatch), params.TxgBatch())
}

func TestLoadOrDefaultMissingFileKeepsDefaults(t *testing.T) {
	params := trim.NewParams()
	f := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), params, nil)

	require.Equal(t, uint64(trim.DefaultExtentBytesMax), f.ExtentBytesMax)
	require.Equal(t, uint64(trim.DefaultExtentBytesMax), params.ExtentBytesMax())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extent_bytes_max: [this is not a number"), 0o644))

	_, err := Load(path, trim.NewParams())
	require.Error(t, err)
}

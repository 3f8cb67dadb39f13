// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package trimconf loads the §5 runtime tunables (extent_bytes_max,
// extent_bytes_min, queue_limit, txg_batch, min_block_size) from a YAML
// document and applies them to a trim.Params, the same module-tunable shape
// every other config surface in this tree uses.
package trimconf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coldvault/poold/log"
	"github.com/coldvault/poold/trim"
)

// File is the on-disk shape of a trim config document. A zero value for any
// field means "leave the built-in default in place" — callers who want to
// force zero must say so some other way, since this layer only ever raises
// or lowers a tunable a caller actually set.
type File struct {
	ExtentBytesMax uint64 `yaml:"extent_bytes_max"`
	ExtentBytesMin uint64 `yaml:"extent_bytes_min"`
	QueueLimit     int32  `yaml:"queue_limit"`
	TxgBatch       uint64 `yaml:"txg_batch"`
	MinBlockSize   uint64 `yaml:"min_block_size"`
}

// Load reads path and applies the parsed fields onto params, skipping any
// field left at its zero value in the document. It returns the parsed File
// as well, so callers can log or re-serialize exactly what was read.
func Load(path string, params *trim.Params) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("trimconf: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("trimconf: parse %s: %w", path, err)
	}
	Apply(f, params)
	return f, nil
}

// Apply writes every non-zero field of f onto params.
func Apply(f File, params *trim.Params) {
	if f.ExtentBytesMax != 0 {
		params.SetExtentBytesMax(f.ExtentBytesMax)
	}
	if f.ExtentBytesMin != 0 {
		params.SetExtentBytesMin(f.ExtentBytesMin)
	}
	if f.QueueLimit != 0 {
		params.SetQueueLimit(f.QueueLimit)
	}
	if f.TxgBatch != 0 {
		params.SetTxgBatch(f.TxgBatch)
	}
	if f.MinBlockSize != 0 {
		params.SetMinBlockSize(f.MinBlockSize)
	}
}

// LoadOrDefault is Load, except a missing file is not an error: it logs at
// Info and returns a File of the built-in defaults already sitting in
// params, matching how most of this module's operators run without ever
// dropping a config file on disk.
func LoadOrDefault(path string, params *trim.Params, logger log.Logger) File {
	if logger == nil {
		logger = log.WithContext("pkg", "trimconf")
	}
	f, err := Load(path, params)
	if err != nil {
		if os.IsNotExist(errUnwrapStat(path)) {
			logger.Info("no trim config file found, using defaults", "path", path)
		} else {
			logger.Error("failed to load trim config, using defaults", "path", path, "err", err)
		}
		return File{
			ExtentBytesMax: params.ExtentBytesMax(),
			ExtentBytesMin: params.ExtentBytesMin(),
			QueueLimit:     params.QueueLimit(),
			TxgBatch:       params.TxgBatch(),
			MinBlockSize:   params.MinBlockSize(),
		}
	}
	return f
}

func errUnwrapStat(path string) error {
	_, err := os.Stat(path)
	return err
}

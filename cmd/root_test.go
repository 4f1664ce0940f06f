/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestBootLocal(t *testing.T) {
	out, err := run(t, "boot", "evm")
	require.NoError(t, err)
	assert.Contains(t, out, "ddr2")
	assert.Contains(t, out, "0x80000000+256 MiB")

	out, err = run(t, "boot", "bone", "--fail", "training")
	require.Error(t, err)
	assert.Contains(t, out, "boot failed")

	_, err = run(t, "boot", "nosuch")
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "name: bone")
	assert.Contains(t, out, "trapPort: 33310")
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "boot", "evm")
	assert.Error(t, err)
}

package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/am"
)

const identitiesYAML = `identities:
  - id: "1"
    name: Jane Doe
    attributes:
      firstname: Jane
      lastname: Doe
  - id: "2"
    name: Jane Doe
    attributes:
      firstname: Jane
      lastname: Doe
`

func offlineConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	idPath := filepath.Join(dir, "identities.yaml")
	require.NoError(t, os.WriteFile(idPath, []byte(identitiesYAML), 0644))

	cfg := `
[source]
offline_file = "` + idPath + `"

[database]
path = "` + filepath.Join(dir, "state.db") + `"

[counters]
employee = 7

[[attributes]]
name = "login"
expression = "$firstname.$lastname"
case = "lower"
unique = true
digits = 2

[[attributes]]
name = "employee"
expression = "E$counter"
counter = true
digits = 5
`
	path := filepath.Join(dir, am.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := &cobra.Command{Use: "attrgen", SilenceUsage: true}
	root.PersistentFlags().StringP("config", "c", "", "")
	root.AddCommand(ListCmd, ReadCmd, CreateCmd, SchemaCmd, EntitlementsCmd, DbCmd)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestListOffline(t *testing.T) {
	path := offlineConfig(t)

	out := execute(t, "list", "--config", path, "--format", "json")
	var accounts []*account.Account
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	require.Len(t, accounts, 2)

	assert.Equal(t, "jane.doe", accounts[0].String("login"))
	assert.Equal(t, "jane.doe01", accounts[1].String("login"))
	assert.Equal(t, "E00000", accounts[0].String("employee"))
	assert.Equal(t, "E00001", accounts[1].String("employee"))

	// The second run reuses the accounts stored by the first.
	out = execute(t, "list", "--config", path, "--format", "json")
	accounts = nil
	require.NoError(t, json.Unmarshal([]byte(out), &accounts))
	assert.Equal(t, "jane.doe01", accounts[1].String("login"))
	assert.Equal(t, "E00001", accounts[1].String("employee"))
}

func TestCreateWritesCounterBack(t *testing.T) {
	path := offlineConfig(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	out := execute(t, "create", "--config", path, "--name", "jdoe",
		"--attr", "firstname=Jane", "--attr", "lastname=Doe")

	var created account.Created
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "jdoe", created.UUID)
	assert.Equal(t, "E00007", created.Attributes["employee"])

	cfg, err := am.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8), cfg.CounterSeed()["employee"])

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	_, err = os.Stat(am.CountersPath(path))
	assert.NoError(t, err)
}

func TestSchemaOutput(t *testing.T) {
	path := offlineConfig(t)

	out := execute(t, "schema", "--config", path, "--format", "yaml")
	assert.Contains(t, out, "name: login")
	assert.Contains(t, out, "name: employee")
	assert.Contains(t, out, "displayAttribute: name")
}

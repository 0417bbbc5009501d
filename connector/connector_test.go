package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/attribute"
	"github.com/teranos/attrgen/counter"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/identity"
	dbtest "github.com/teranos/attrgen/internal/testing"
	"github.com/teranos/attrgen/store"
	"github.com/teranos/attrgen/transform"
)

const sourceID = "src-1"

var loginDef = attribute.Definition{
	Name:       "login",
	Expression: "$firstname.$lastname",
	Case:       transform.Lower,
	Normalize:  true,
	Unique:     true,
	Digits:     2,
}

var uidDef = attribute.Definition{
	Name:       "UID",
	Expression: "u$counter",
	Counter:    true,
	Digits:     4,
}

func person(id, first, last string) identity.Identity {
	return identity.Identity{
		ID:   id,
		Name: first + " " + last,
		Attributes: map[string]any{
			"firstname": first,
			"lastname":  last,
		},
	}
}

type memoryStates struct {
	values map[string]int64
	saves  int
}

func (m *memoryStates) Load(context.Context, string) (map[string]int64, error) {
	return m.values, nil
}

func (m *memoryStates) Save(_ context.Context, _ string, state map[string]int64) error {
	m.saves++
	m.values = state
	return nil
}

type recordingWriter struct {
	batches [][]counter.Patch
}

func (r *recordingWriter) WritePatches(_ context.Context, patches []counter.Patch) error {
	r.batches = append(r.batches, patches)
	return nil
}

type failingSource struct{ identity.Source }

func (failingSource) Ping(context.Context) error {
	return errors.Mark(errors.New("dial tcp: refused"), errors.ErrServiceUnavailable)
}

func logins(accts []*account.Account) []string {
	out := make([]string, len(accts))
	for i, a := range accts {
		out[i] = a.String("login")
	}
	return out
}

func TestList_ResolvesCollisions(t *testing.T) {
	taken := person("3", "Jake", "Roe")
	taken.Attributes["login"] = "jane.doe01"

	src := identity.NewStaticSource(
		person("1", "Jane", "Doe"),
		person("2", "Jané", "Doe"),
		taken,
	)
	c, err := New(Config{Definitions: []attribute.Definition{loginDef}}, src)
	require.NoError(t, err)

	sink := &SliceSink{}
	summary, err := c.List(t.Context(), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"jane.doe", "jane.doe02", "jake.roe"}, logins(sink.Accounts))
	assert.Equal(t, 3, summary.Identities)
	assert.Equal(t, 3, summary.Generated)
	assert.NotEmpty(t, summary.RunID)

	first := sink.Accounts[0]
	assert.Equal(t, "1", first.ID())
	assert.Equal(t, "Jane Doe", first.String("name"))
	assert.False(t, first.Disabled)
}

func TestList_PersistentCounterSavedOnce(t *testing.T) {
	states := &memoryStates{values: map[string]int64{"UID": 7}}
	src := identity.NewStaticSource(person("a", "A", "One"), person("b", "B", "Two"), person("c", "C", "Three"))

	c, err := New(Config{Definitions: []attribute.Definition{uidDef}}, src, WithStateStore(states))
	require.NoError(t, err)

	sink := &SliceSink{}
	_, err = c.List(t.Context(), sink)
	require.NoError(t, err)

	var uids []string
	for _, a := range sink.Accounts {
		uids = append(uids, a.String("UID"))
	}
	assert.Equal(t, []string{"u0007", "u0008", "u0009"}, uids)
	assert.Equal(t, 1, states.saves)
	assert.Equal(t, map[string]int64{"UID": 10}, states.values)
}

func TestList_KeepsExistingAccountValues(t *testing.T) {
	held := person("1", "Jane", "Doe")
	held.Accounts = []identity.AccountRef{
		{SourceID: "other", Attributes: map[string]any{"login": "ignored"}},
		{SourceID: sourceID, Attributes: map[string]any{"id": "1", "name": "Jane Doe", "login": "jane.doe"}},
	}
	src := identity.NewStaticSource(held, person("2", "Jane", "Doe"))

	c, err := New(Config{Definitions: []attribute.Definition{loginDef}, SourceID: sourceID}, src)
	require.NoError(t, err)

	sink := &SliceSink{}
	summary, err := c.List(t.Context(), sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"jane.doe", "jane.doe01"}, logins(sink.Accounts))
	assert.Equal(t, 1, summary.Generated)
}

func TestList_RefreshRecomputes(t *testing.T) {
	held := person("1", "Jane", "Doe")
	held.Accounts = []identity.AccountRef{
		{SourceID: sourceID, Attributes: map[string]any{"id": "1", "name": "Jane Doe", "display": "stale"}},
	}
	src := identity.NewStaticSource(held)

	def := attribute.Definition{Name: "display", Expression: "$lastname, $firstname", Refresh: true}
	c, err := New(Config{Definitions: []attribute.Definition{def}, SourceID: sourceID}, src)
	require.NoError(t, err)

	sink := &SliceSink{}
	_, err = c.List(t.Context(), sink)
	require.NoError(t, err)
	assert.Equal(t, "Doe, Jane", sink.Accounts[0].String("display"))
}

func TestList_MissingAttributesAbortsRun(t *testing.T) {
	states := &memoryStates{}
	src := identity.NewStaticSource(person("1", "Jane", "Doe"), identity.Identity{ID: "2", Name: "Ghost"})

	c, err := New(Config{Definitions: []attribute.Definition{loginDef}}, src, WithStateStore(states))
	require.NoError(t, err)

	sink := &SliceSink{}
	_, err = c.List(t.Context(), sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingAttributeData))
	assert.Empty(t, sink.Accounts)
	assert.Zero(t, states.saves)
}

func TestList_FailedAttributeLeftUnset(t *testing.T) {
	src := identity.NewStaticSource(person("1", "Jane", "Doe"))
	defs := []attribute.Definition{
		{Name: "mail", Expression: "$email"},
		{Name: "initials", Expression: "$firstname"},
	}
	c, err := New(Config{Definitions: defs}, src)
	require.NoError(t, err)

	sink := &SliceSink{}
	summary, err := c.List(t.Context(), sink)
	require.NoError(t, err)

	_, hasMail := sink.Accounts[0].Attributes["mail"]
	assert.False(t, hasMail)
	assert.Equal(t, "Jane", sink.Accounts[0].String("initials"))
	assert.Equal(t, 1, summary.Failed)
}

func TestList_SinkErrorStopsRun(t *testing.T) {
	src := identity.NewStaticSource(person("1", "Jane", "Doe"))
	c, err := New(Config{Definitions: []attribute.Definition{loginDef}}, src)
	require.NoError(t, err)

	_, err = c.List(t.Context(), SinkFunc(func(*account.Account) error {
		return errors.New("closed pipe")
	}))
	assert.ErrorContains(t, err, "closed pipe")
}

func TestList_OfflineStoreRoundTrip(t *testing.T) {
	conn := dbtest.CreateTestDB(t)
	states := store.NewStateStore(conn)
	accounts := store.NewAccountStore(conn)

	src := identity.NewStaticSource(person("1", "Jane", "Doe"))
	defs := []attribute.Definition{loginDef, uidDef}
	c, err := New(Config{Definitions: defs}, src, WithStateStore(states), WithAccountStore(accounts))
	require.NoError(t, err)

	first := &SliceSink{}
	_, err = c.List(t.Context(), first)
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", first.Accounts[0].String("login"))
	assert.Equal(t, "u0000", first.Accounts[0].String("UID"))

	// A second run finds the stored account and leaves its values alone,
	// while a new identity continues the sequence.
	src2 := identity.NewStaticSource(person("1", "Jane", "Doe"), person("2", "Jane", "Doe"))
	c2, err := New(Config{Definitions: defs}, src2, WithStateStore(states), WithAccountStore(accounts))
	require.NoError(t, err)

	second := &SliceSink{}
	summary, err := c2.List(t.Context(), second)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane.doe", "jane.doe01"}, logins(second.Accounts))
	assert.Equal(t, "u0000", second.Accounts[0].String("UID"))
	assert.Equal(t, "u0001", second.Accounts[1].String("UID"))
	assert.Equal(t, 2, summary.Generated)

	saved, err := c2.SavedState(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"UID": 2}, saved)
}

func TestRead(t *testing.T) {
	src := identity.NewStaticSource(person("1", "Jane", "Doe"), person("2", "Jane", "Doe"))
	c, err := New(Config{Definitions: []attribute.Definition{loginDef, uidDef}}, src)
	require.NoError(t, err)

	acct, err := c.Read(t.Context(), "2")
	require.NoError(t, err)
	assert.Equal(t, "2", acct.ID())
	assert.Equal(t, "jane.doe", acct.String("login"), "read does not enforce uniqueness")
	assert.Equal(t, "u0001", acct.String("UID"), "read counters are ephemeral")

	_, err = c.Read(t.Context(), "missing")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRead_UsesStoredAccount(t *testing.T) {
	accounts := store.NewAccountStore(dbtest.CreateTestDB(t))
	require.NoError(t, accounts.Put(t.Context(), "run-1",
		account.New(map[string]any{"id": "2", "name": "Jane Doe", "login": "jane.doe07"})))

	src := identity.NewStaticSource(person("1", "Jane", "Doe"), person("2", "Jane", "Doe"))
	c, err := New(Config{Definitions: []attribute.Definition{loginDef, uidDef}}, src, WithAccountStore(accounts))
	require.NoError(t, err)

	acct, err := c.Read(t.Context(), "2")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe07", acct.String("login"))
	assert.Equal(t, "u0001", acct.String("UID"))

	acct, err = c.Read(t.Context(), "1")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", acct.String("login"))
}

func TestRead_MissingAttributes(t *testing.T) {
	src := identity.NewStaticSource(identity.Identity{ID: "9", Name: "Ghost"})
	c, err := New(Config{Definitions: []attribute.Definition{loginDef}}, src)
	require.NoError(t, err)

	_, err = c.Read(t.Context(), "9")
	assert.True(t, errors.Is(err, errors.ErrMissingAttributeData))
}

func TestCreate_CountersAndPatches(t *testing.T) {
	writer := &recordingWriter{}
	suffix := attribute.Definition{Name: "suffix", Expression: "x", Counter: true, Omit: true}

	c, err := New(Config{
		Definitions: []attribute.Definition{uidDef, suffix, loginDef},
		Counters:    map[string]int64{"UID": 41},
	}, identity.NewStaticSource(), WithPatchWriter(writer))
	require.NoError(t, err)

	attrs := map[string]any{"name": "jdoe", "firstname": "Jane", "lastname": "Doe"}
	created, err := c.Create(t.Context(), "", attrs)
	require.NoError(t, err)

	assert.Equal(t, "jdoe", created.UUID)
	assert.Equal(t, "jdoe", created.Identity)
	assert.Equal(t, "u0041", created.Attributes["UID"])
	assert.Equal(t, "x", created.Attributes["suffix"], "a zero counter is omitted")
	assert.Equal(t, "jane.doe", created.Attributes["login"])
	assert.Equal(t, "Jane", created.Attributes["firstname"])
	assert.NotContains(t, attrs, "UID")

	require.Len(t, writer.batches, 1)
	assert.Equal(t, []counter.Patch{{ID: "UID", Value: 42}, {ID: "suffix", Value: 1}}, writer.batches[0])

	created, err = c.Create(t.Context(), "jdoe2", attrs)
	require.NoError(t, err)
	assert.Equal(t, "u0042", created.Attributes["UID"])
	assert.Equal(t, "x1", created.Attributes["suffix"])
	require.Len(t, writer.batches, 2)
	assert.Equal(t, []counter.Patch{{ID: "UID", Value: 43}, {ID: "suffix", Value: 2}}, writer.batches[1])

	assert.Equal(t, int64(43), c.CounterVersions()["UID"].Current)
}

func TestCreate_NoPatchesWithoutCounters(t *testing.T) {
	writer := &recordingWriter{}
	c, err := New(Config{Definitions: []attribute.Definition{loginDef}}, identity.NewStaticSource(), WithPatchWriter(writer))
	require.NoError(t, err)

	_, err = c.Create(t.Context(), "x", map[string]any{"firstname": "A", "lastname": "B"})
	require.NoError(t, err)
	assert.Empty(t, writer.batches)
}

func TestReloadCounters_Ratchets(t *testing.T) {
	c, err := New(Config{
		Definitions: []attribute.Definition{uidDef},
		Counters:    map[string]int64{"UID": 5},
	}, identity.NewStaticSource())
	require.NoError(t, err)

	require.NoError(t, c.ReloadCounters(t.Context(), map[string]int64{"UID": 100}))
	created, err := c.Create(t.Context(), "n", nil)
	require.NoError(t, err)
	assert.Equal(t, "u0100", created.Attributes["UID"])

	// Lower values never move a counter back.
	require.NoError(t, c.ReloadCounters(t.Context(), map[string]int64{"UID": 3}))
	created, err = c.Create(t.Context(), "n", nil)
	require.NoError(t, err)
	assert.Equal(t, "u0101", created.Attributes["UID"])
}

func TestSchemaAndEntitlements(t *testing.T) {
	c, err := New(Config{Definitions: []attribute.Definition{loginDef, uidDef}}, identity.NewStaticSource())
	require.NoError(t, err)

	schema := c.Schema()
	require.Len(t, schema.Attributes, 4)
	assert.Equal(t, "login", schema.Attributes[2].Name)
	assert.Equal(t, "UID", schema.Attributes[3].Name)

	ents := c.Entitlements()
	require.Len(t, ents, 1)
	assert.Equal(t, "Account", ents[0].UUID)
}

func TestTestConnection(t *testing.T) {
	c, err := New(Config{}, identity.NewStaticSource())
	require.NoError(t, err)
	assert.NoError(t, c.TestConnection(t.Context()))

	c, err = New(Config{}, failingSource{})
	require.NoError(t, err)
	err = c.TestConnection(t.Context())
	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
}

func TestNew_RejectsBadDefinitions(t *testing.T) {
	_, err := New(Config{Definitions: []attribute.Definition{loginDef, loginDef}}, identity.NewStaticSource())
	assert.ErrorContains(t, err, "duplicate")

	_, err = New(Config{}, nil)
	assert.Error(t, err)
}

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostr-query/internal/types"
)

func contactList(id, author string, createdAt int64, contacts ...string) types.Event {
	tags := make([][]string, 0, len(contacts))
	for _, pk := range contacts {
		tags = append(tags, []string{"p", pk})
	}
	return types.Event{
		ID:        id,
		PubKey:    author,
		CreatedAt: createdAt,
		Kind:      types.KindContacts,
		Tags:      tags,
	}
}

func TestResolverLatestWinsAnyArrivalOrder(t *testing.T) {
	a := contactList("doc-a", "alice", 100, "old")
	b := contactList("doc-b", "alice", 300, "newest")
	c := contactList("doc-c", "alice", 200, "middle")

	orders := [][]types.Event{
		{a, b, c},
		{a, c, b},
		{b, a, c},
		{b, c, a},
		{c, a, b},
		{c, b, a},
	}
	for _, order := range orders {
		r := newDocumentResolver(nil)
		for _, evt := range order {
			r.observe(evt)
		}
		doc := r.result()
		require.NotNil(t, doc)
		assert.Equal(t, int64(300), doc.CreatedAt)
		assert.Equal(t, [][]string{{"p", "newest"}}, doc.Tags)
	}
}

func TestResolverTieBreakLastProcessedWins(t *testing.T) {
	// Equal timestamps are plausible with clock-skewed or retransmitted
	// documents; the winner is whichever arrived last.
	x := contactList("doc-x", "alice", 500, "from-x")
	y := contactList("doc-y", "alice", 500, "from-y")

	r := newDocumentResolver(nil)
	r.observe(x)
	r.observe(y)
	assert.Equal(t, [][]string{{"p", "from-y"}}, r.result().Tags)

	r = newDocumentResolver(nil)
	r.observe(y)
	r.observe(x)
	assert.Equal(t, [][]string{{"p", "from-x"}}, r.result().Tags)
}

func TestResolveLatestDocument(t *testing.T) {
	e := stubEngine(scriptedQuery(map[string][]types.Event{
		"A": {contactList("doc-a", "alice", 100, "old")},
		"B": {contactList("doc-b", "alice", 300, "bob", "carol")},
		"C": nil,
	}, nil))

	doc, err := e.ResolveLatestDocument(context.Background(), []string{"A", "B", "C"}, "alice", types.KindContacts)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, int64(300), doc.CreatedAt)
	assert.Len(t, doc.Tags, 2)

	require.Len(t, doc.Diagnostics, 3)
	byRelay := map[string]types.RelayDiagnostic{}
	for _, d := range doc.Diagnostics {
		byRelay[d.Relay] = d
	}
	assert.True(t, byRelay["A"].Responded)
	assert.Equal(t, int64(100), byRelay["A"].CreatedAt)
	assert.True(t, byRelay["B"].Responded)
	assert.Equal(t, 2, byRelay["B"].TagCount)
	assert.True(t, byRelay["C"].Responded)
	assert.Zero(t, byRelay["C"].CreatedAt)
}

func TestResolveLatestDocumentIgnoresWrongAuthor(t *testing.T) {
	e := stubEngine(scriptedQuery(map[string][]types.Event{
		"A": {
			contactList("doc-m", "mallory", 900, "planted"),
			contactList("doc-a", "alice", 100, "real"),
		},
	}, nil))

	doc, err := e.ResolveLatestDocument(context.Background(), []string{"A"}, "alice", types.KindContacts)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, [][]string{{"p", "real"}}, doc.Tags)
}

func TestResolveLatestDocumentNotFound(t *testing.T) {
	e := stubEngine(scriptedQuery(map[string][]types.Event{"A": nil}, nil))
	doc, err := e.ResolveLatestDocument(context.Background(), []string{"A"}, "alice", types.KindContacts)
	require.NoError(t, err)
	assert.Nil(t, doc, "no revision anywhere is an expected outcome")
}

func TestResolveContacts(t *testing.T) {
	e := stubEngine(scriptedQuery(map[string][]types.Event{
		"A": {contactList("doc", "alice", 100, "bob", "carol")},
	}, nil))

	contacts, err := e.ResolveContacts(context.Background(), []string{"A"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, contacts)
}

func TestResolveRelayList(t *testing.T) {
	evt := types.Event{
		ID: "rl", PubKey: "alice", CreatedAt: 100, Kind: types.KindRelayList,
		Tags: [][]string{
			{"r", "wss://read.example", "read"},
			{"r", "wss://write.example", "write"},
			{"r", "wss://both.example"},
		},
	}
	e := stubEngine(scriptedQuery(map[string][]types.Event{"A": {evt}}, nil))

	list, err := e.ResolveRelayList(context.Background(), []string{"A"}, "alice")
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, []string{"wss://read.example", "wss://both.example"}, list.Read)
	assert.Equal(t, []string{"wss://write.example", "wss://both.example"}, list.Write)
}

func TestResolveLatestDocumentCallerMisuse(t *testing.T) {
	e := stubEngine(scriptedQuery(nil, nil))
	_, err := e.ResolveLatestDocument(context.Background(), []string{"A"}, "", types.KindContacts)
	require.ErrorIs(t, err, ErrMissingTarget)

	doc, err := e.ResolveLatestDocument(context.Background(), nil, "alice", types.KindContacts)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

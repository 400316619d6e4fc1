package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventEnvelope(t *testing.T) {
	env, err := decodeEnvelope([]byte(`["EVENT","sub-1",{"id":"abc","pubkey":"pk","created_at":100,"kind":1,"tags":[["e","parent"]],"content":"hi","sig":"s"}]`))
	require.NoError(t, err)

	msg, ok := env.(EventMessage)
	require.True(t, ok)
	assert.Equal(t, "sub-1", msg.SubscriptionID)
	assert.Equal(t, "abc", msg.Event.ID)
	assert.Equal(t, int64(100), msg.Event.CreatedAt)
	assert.Equal(t, "parent", msg.Event.LastTagValue("e"))
}

func TestDecodeEOSEAndOK(t *testing.T) {
	env, err := decodeEnvelope([]byte(`["EOSE","sub-1"]`))
	require.NoError(t, err)
	assert.Equal(t, EOSEMessage{SubscriptionID: "sub-1"}, env)

	env, err = decodeEnvelope([]byte(`["OK","evt-id",true,"duplicate:"]`))
	require.NoError(t, err)
	assert.Equal(t, OKMessage{EventID: "evt-id", Accepted: true, Reason: "duplicate:"}, env)
}

func TestDecodeClosedAndNotice(t *testing.T) {
	env, err := decodeEnvelope([]byte(`["CLOSED","sub-1","auth-required: do the dance"]`))
	require.NoError(t, err)
	assert.Equal(t, ClosedMessage{SubscriptionID: "sub-1", Reason: "auth-required: do the dance"}, env)

	env, err = decodeEnvelope([]byte(`["NOTICE","slow down"]`))
	require.NoError(t, err)
	assert.Equal(t, NoticeMessage{Message: "slow down"}, env)
}

func TestDecodeMalformedFrames(t *testing.T) {
	cases := []string{
		``,
		`{}`,
		`[]`,
		`["EVENT"]`,
		`[42,"sub"]`,
		`["EVENT","sub"]`,
		`["EVENT","sub",{"pubkey":"pk"}]`, // missing id
		`["UNKNOWN","sub"]`,
		`["OK","id"]`,
	}
	for _, raw := range cases {
		_, err := decodeEnvelope([]byte(raw))
		assert.Error(t, err, "frame %q should be rejected", raw)
	}
}

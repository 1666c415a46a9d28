package chat

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampUnmarshal(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-14 09:26:53.589793"`), &ts))

	assert.Equal(t, 2025, ts.Year())
	assert.Equal(t, time.March, ts.Month())
	assert.Equal(t, 14, ts.Day())
	assert.Equal(t, 589793000, ts.Nanosecond())
}

func TestTimestampUnmarshalEmpty(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
	assert.True(t, ts.IsZero())
}

func TestTimestampUnmarshalRejectsBadFormat(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"2025-03-14T09:26:53Z"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`42`), &ts))
}

func TestTimestampRoundTrip(t *testing.T) {
	orig := Timestamp{Time: time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)}

	raw, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-14 09:26:53.589793"`, string(raw))

	var back Timestamp
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, orig.Equal(back.Time))
}

func TestConversationKey(t *testing.T) {
	incoming := msg("m1", "bob", "alice", "hi")
	outgoing := msg("m2", "alice", "bob", "hello")

	// Both directions of the same exchange file under the same key.
	assert.Equal(t, "bob", ConversationKey(incoming, "alice"))
	assert.Equal(t, "bob", ConversationKey(outgoing, "alice"))

	// Seen from bob's side the key is alice.
	assert.Equal(t, "alice", ConversationKey(incoming, "bob"))
	assert.Equal(t, "alice", ConversationKey(outgoing, "bob"))
}

func TestSentBy(t *testing.T) {
	m := msg("m1", "alice", "bob", "hi")
	assert.True(t, m.SentBy("alice"))
	assert.False(t, m.SentBy("bob"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice"))
	assert.NoError(t, ValidateUsername("a"))
	assert.ErrorIs(t, ValidateUsername(""), ErrInvalidUsername)
	assert.ErrorIs(t, ValidateUsername("this-username-is-way-too-long"), ErrInvalidUsername)
}

func TestValidateMessageData(t *testing.T) {
	assert.NoError(t, ValidateMessageData("hi"))
	assert.ErrorIs(t, ValidateMessageData(""), ErrInvalidMessageData)

	long := make([]byte, MaxMessageDataLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, ValidateMessageData(string(long)), ErrInvalidMessageData)
	assert.NoError(t, ValidateMessageData(string(long[:MaxMessageDataLength])))
}

func TestValidateBoundsCountCharacters(t *testing.T) {
	// The server bounds are character counts; multibyte text must not be
	// rejected for its byte length.
	atLimit := strings.Repeat("あ", MaxMessageDataLength)
	assert.NoError(t, ValidateMessageData(atLimit))
	assert.ErrorIs(t, ValidateMessageData(atLimit+"あ"), ErrInvalidMessageData)

	name := strings.Repeat("ü", MaxUsernameLength)
	assert.NoError(t, ValidateUsername(name))
	assert.ErrorIs(t, ValidateUsername(name+"ü"), ErrInvalidUsername)
}

func TestValidateMessageID(t *testing.T) {
	assert.NoError(t, ValidateMessageID("0a0ee1f7-6852-4b38-bf67-34a5b4732199"))
	assert.ErrorIs(t, ValidateMessageID("m1"), ErrInvalidMessageID)
	assert.ErrorIs(t, ValidateMessageID(""), ErrInvalidMessageID)
}

func TestMessageValidate(t *testing.T) {
	valid := Message{
		MessageID:     "0a0ee1f7-6852-4b38-bf67-34a5b4732199",
		SenderName:    "alice",
		RecipientName: "bob",
		MessageData:   "hello",
	}
	assert.NoError(t, valid.Validate(false))

	noBody := valid
	noBody.MessageData = ""
	assert.Error(t, noBody.Validate(false))
	assert.NoError(t, noBody.Validate(true))

	badSender := valid
	badSender.SenderName = ""
	assert.ErrorIs(t, badSender.Validate(false), ErrInvalidUsername)

	badID := valid
	badID.MessageID = "nope"
	assert.ErrorIs(t, badID.Validate(true), ErrInvalidMessageID)
}

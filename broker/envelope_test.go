package broker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJoinGroup_StringAndObjectForms(t *testing.T) {
	req := require.New(t)

	payload, err := decodeJoinGroup(json.RawMessage(`"g1"`))
	req.NoError(err)
	req.Equal("g1", payload.GroupID)
	req.Empty(payload.Username)

	payload, err = decodeJoinGroup(json.RawMessage(`{"groupId":"g1","username":"alice"}`))
	req.NoError(err)
	req.Equal("g1", payload.GroupID)
	req.Equal("alice", payload.Username)

	_, err = decodeJoinGroup(json.RawMessage(`42`))
	req.Error(err)
}

func TestDecodeAnnounce_StringAndObjectForms(t *testing.T) {
	req := require.New(t)

	payload, err := decodeAnnounce(json.RawMessage(`"Zoe"`))
	req.NoError(err)
	req.Equal("Zoe", payload.Name)

	payload, err = decodeAnnounce(json.RawMessage(`{"name":"Zoe","profilePicture":"zoe.png"}`))
	req.NoError(err)
	req.Equal("Zoe", payload.Name)
	req.Equal("zoe.png", payload.ProfilePicture)
}

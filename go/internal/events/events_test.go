package events_test

import (
	"encoding/json"
	"testing"

	"github.com/mcdev12/rpsls/go/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{name: "bare string", data: `"R1"`, want: "R1"},
		{name: "object", data: `{"room":"R2"}`, want: "R2"},
		{name: "trimmed", data: `"  R3 "`, want: "R3"},
		{name: "empty string", data: `""`, wantErr: true},
		{name: "missing", data: ``, wantErr: true},
		{name: "number", data: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := events.ParseRoomID(json.RawMessage(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChoice(t *testing.T) {
	p, err := events.ParseChoice(json.RawMessage(`{"choice":"rock"}`))
	require.NoError(t, err)
	assert.Equal(t, "rock", p.Choice)

	_, err = events.ParseChoice(nil)
	assert.Error(t, err)

	_, err = events.ParseChoice(json.RawMessage(`"rock"`))
	assert.Error(t, err)
}

func TestMessage_Encoding(t *testing.T) {
	b, err := json.Marshal(events.Failure(events.CodeNotJoined, "join a room first"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"error","data":{"code":"not-joined","message":"join a room first"}}`, string(b))

	b, err = json.Marshal(events.Text(events.Full, events.FullMessage))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"full","data":"Sorry! Two players are already in this room."}`, string(b))
}

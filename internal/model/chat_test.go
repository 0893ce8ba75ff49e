package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleModel.Valid())
	assert.False(t, Role("assistant").Valid())
	assert.False(t, Role("").Valid())
}

func TestMessageJSONUsesUpperCaseRoles(t *testing.T) {
	data, err := json.Marshal(Message{Role: RoleModel, Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"MODEL","text":"hi"}`, string(data))
}

func TestRoleUnmarshalRejectsUnknown(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"role":"SYSTEM","text":"x"}`), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYSTEM")

	require.NoError(t, json.Unmarshal([]byte(`{"role":"USER","text":"1"}`), &m))
	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "1", m.Text)
}

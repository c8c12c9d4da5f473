package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkUpdate_JSONFieldNames(t *testing.T) {
	u := LinkUpdate{
		ID:          7,
		URL:         "https://github.com/o/r",
		ChatIDs:     []int64{1, 2},
		Description: "Platform: GitHub",
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":7,"url":"https://github.com/o/r","tgChatIds":[1,2],"description":"Platform: GitHub"}`,
		string(data))
}

func TestLinkUpdate_Validate(t *testing.T) {
	tests := []struct {
		name      string
		update    LinkUpdate
		wantField string
	}{
		{
			name:   "valid",
			update: LinkUpdate{ID: 1, URL: "https://github.com/o/r", ChatIDs: []int64{1}},
		},
		{
			name:      "zero id",
			update:    LinkUpdate{ID: 0, URL: "https://github.com/o/r", ChatIDs: []int64{1}},
			wantField: "id",
		},
		{
			name:      "blank url",
			update:    LinkUpdate{ID: 1, URL: "  ", ChatIDs: []int64{1}},
			wantField: "url",
		},
		{
			name:      "no chats",
			update:    LinkUpdate{ID: 1, URL: "https://github.com/o/r"},
			wantField: "tgChatIds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

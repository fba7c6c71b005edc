package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberID(t *testing.T) {
	t.Run("ParseMemberID", func(t *testing.T) {
		tests := []struct {
			name    string
			input   string
			want    MemberID
			wantErr bool
		}{
			{"valid", "42", 42, false},
			{"zero", "0", 0, false},
			{"empty", "", 0, true},
			{"not a number", "abc", 0, true},
			{"trailing garbage", "12x", 0, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := ParseMemberID(tt.input)
				if tt.wantErr {
					assert.Error(t, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "7", MemberID(7).String())

		id, err := ParseMemberID(MemberID(1234).String())
		require.NoError(t, err)
		assert.Equal(t, MemberID(1234), id)
	})
}
